// Package secrets stores autogenerated user credentials out-of-band of the
// relational database. The canonical backend is a Kubernetes secret per
// (course, user) pair; tests substitute a fake.
package secrets

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	k8sV1 "k8s.io/api/core/v1"
	k8error "k8s.io/apimachinery/pkg/api/errors"
	metaV1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	typedV1 "k8s.io/client-go/kubernetes/typed/core/v1"

	"github.com/eduhelx/grader-core/apperrors"
	"github.com/eduhelx/grader-core/models"
)

// Store holds the plaintext autogenerated password for each provisioned user.
// The relational database only ever sees the bcrypt hash; the plaintext lives
// here so that later steps (and user deletion) can retrieve it.
type Store interface {
	// CreateCredentialSecret stores the plaintext password for a user.
	CreateCredentialSecret(ctx context.Context, courseName, onyen, password string, role models.Role) error
	// GetAutogenPassword retrieves the stored plaintext password.
	GetAutogenPassword(ctx context.Context, courseName, onyen string) (string, error)
	// DeleteCredentialSecret removes the stored password. Deleting a secret
	// that does not exist is not an error.
	DeleteCredentialSecret(ctx context.Context, courseName, onyen string) error
}

const passwordKey = "password"

var _ Store = (*KubernetesStore)(nil)

// KubernetesStore implements Store on namespaced Kubernetes secrets.
type KubernetesStore struct {
	secrets typedV1.SecretInterface
	syslog  *logrus.Entry
}

// NewKubernetesStore creates a store writing through the given secret
// interface.
func NewKubernetesStore(secrets typedV1.SecretInterface) *KubernetesStore {
	return &KubernetesStore{
		secrets: secrets,
		syslog:  logrus.WithField("component", "secrets"),
	}
}

// SecretName derives the deterministic secret name for a (course, user) pair.
// The result is DNS-1123 safe: lowercased, with runs of disallowed characters
// collapsed to hyphens.
func SecretName(courseName, onyen string) string {
	return fmt.Sprintf("%s-%s-credential-secret", dnsSafe(courseName), dnsSafe(onyen))
}

func dnsSafe(s string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		case !lastHyphen:
			b.WriteByte('-')
			lastHyphen = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// CreateCredentialSecret implements Store.
func (s *KubernetesStore) CreateCredentialSecret(
	ctx context.Context, courseName, onyen, password string, role models.Role,
) error {
	name := SecretName(courseName, onyen)
	s.syslog.WithFields(logrus.Fields{"secret": name, "onyen": onyen}).
		Info("creating credential secret")

	_, err := s.secrets.Create(ctx, &k8sV1.Secret{
		ObjectMeta: metaV1.ObjectMeta{
			Name: name,
			Labels: map[string]string{
				"app.kubernetes.io/managed-by": "grader-core",
				"grader-core/onyen":            dnsSafe(onyen),
				"grader-core/role":             string(role),
			},
		},
		Type: k8sV1.SecretTypeOpaque,
		Data: map[string][]byte{
			passwordKey: []byte(password),
		},
	}, metaV1.CreateOptions{})
	if k8error.IsAlreadyExists(err) {
		return apperrors.Conflictf("credential secret %q already exists", name)
	}
	if err != nil {
		return errors.Wrapf(err, "failed to create credential secret %q", name)
	}
	return nil
}

// GetAutogenPassword implements Store.
func (s *KubernetesStore) GetAutogenPassword(
	ctx context.Context, courseName, onyen string,
) (string, error) {
	name := SecretName(courseName, onyen)
	secret, err := s.secrets.Get(ctx, name, metaV1.GetOptions{})
	if k8error.IsNotFound(err) {
		return "", apperrors.NotFoundf("credential secret %q not found", name)
	}
	if err != nil {
		return "", errors.Wrapf(err, "failed to get credential secret %q", name)
	}
	password, ok := secret.Data[passwordKey]
	if !ok {
		return "", errors.Errorf("credential secret %q has no %q key", name, passwordKey)
	}
	return string(password), nil
}

// DeleteCredentialSecret implements Store.
func (s *KubernetesStore) DeleteCredentialSecret(ctx context.Context, courseName, onyen string) error {
	name := SecretName(courseName, onyen)
	s.syslog.WithFields(logrus.Fields{"secret": name, "onyen": onyen}).
		Info("deleting credential secret")

	err := s.secrets.Delete(ctx, name, metaV1.DeleteOptions{})
	if err != nil && !k8error.IsNotFound(err) {
		return errors.Wrapf(err, "failed to delete credential secret %q", name)
	}
	return nil
}
