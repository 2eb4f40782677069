package secrets

import (
	"context"
	"errors"
	"fmt"
	"strings"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/donaldmo/pandopot-api/internal/platform/logger"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const latestVersion = "latest"

type accessFunc func(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest) (*secretmanagerpb.AccessSecretVersionResponse, error)

// SecretManagerStore reads keys from GCP Secret Manager.
// The secret ID for an account is <prefix><accountID>.
type SecretManagerStore struct {
	access    accessFunc
	projectID string
	prefix    string
	log       logger.Logger
}

func NewSecretManagerStore(client *secretmanager.Client, projectID, prefix string, log logger.Logger) (*SecretManagerStore, error) {
	if client == nil {
		return nil, errors.New("secret manager client is nil")
	}
	access := func(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest) (*secretmanagerpb.AccessSecretVersionResponse, error) {
		return client.AccessSecretVersion(ctx, req)
	}
	return newSecretManagerStore(access, projectID, prefix, log)
}

func newSecretManagerStore(access accessFunc, projectID, prefix string, log logger.Logger) (*SecretManagerStore, error) {
	if strings.TrimSpace(projectID) == "" {
		return nil, errors.New("secret manager project ID is empty")
	}
	return &SecretManagerStore{
		access:    access,
		projectID: strings.TrimSpace(projectID),
		prefix:    strings.TrimSpace(prefix),
		log:       log,
	}, nil
}

func (s *SecretManagerStore) secretName(accountID string) string {
	return fmt.Sprintf("projects/%s/secrets/%s%s/versions/%s", s.projectID, s.prefix, accountID, latestVersion)
}

func (s *SecretManagerStore) PaymentKey(ctx context.Context, accountID string) (string, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return "", ErrSecretNotFound
	}

	name := s.secretName(accountID)
	resp, err := s.access(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: name})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return "", ErrSecretNotFound
		}
		s.log.Errorf("AccessSecretVersion failed for %s: %v", name, err)
		return "", fmt.Errorf("access secret %s: %w", name, err)
	}
	if resp == nil || resp.Payload == nil || len(resp.Payload.Data) == 0 {
		return "", ErrSecretNotFound
	}
	return strings.TrimSpace(string(resp.Payload.Data)), nil
}
