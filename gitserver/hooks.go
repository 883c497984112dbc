package gitserver

// masterPreReceiveHook is the policy script installed on the class master
// repository. It blocks branch deletion and any non-fast-forward push to the
// default branch, so history that assignments were distributed from cannot be
// rewritten.
const masterPreReceiveHook = `#!/usr/bin/env bash
set -euo pipefail

zero="0000000000000000000000000000000000000000"

while read -r oldrev newrev refname; do
    if [ "$refname" != "refs/heads/main" ]; then
        continue
    fi
    if [ "$newrev" = "$zero" ]; then
        echo "deleting the master branch is not allowed" >&2
        exit 1
    fi
    if [ "$oldrev" != "$zero" ] && ! git merge-base --is-ancestor "$oldrev" "$newrev"; then
        echo "non-fast-forward pushes to the master branch are not allowed" >&2
        exit 1
    fi
done
`

// MasterPreReceiveHook returns the pre-receive hook content for the class
// master repository.
func MasterPreReceiveHook() string {
	return masterPreReceiveHook
}
