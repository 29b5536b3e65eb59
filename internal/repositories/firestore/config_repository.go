package firestore

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	pfirestore "github.com/valitor-commerce/api/internal/platform/firestore"
)

const storeConfigCollection = "storeConfig"

// StoreConfigRepository reads the host platform's store-scoped configuration
// values. Each store holds one document whose fields map configuration paths
// (slashes encoded as dots) to string values.
type StoreConfigRepository struct {
	provider *pfirestore.Provider
}

// NewStoreConfigRepository constructs a Firestore-backed store config repository.
func NewStoreConfigRepository(provider *pfirestore.Provider) (*StoreConfigRepository, error) {
	if provider == nil {
		return nil, errors.New("store config repository requires firestore provider")
	}
	return &StoreConfigRepository{provider: provider}, nil
}

// Value returns the configuration value at path for the store. Missing
// documents and missing keys resolve to the empty string; per host-platform
// semantics an unset value is not an error.
func (r *StoreConfigRepository) Value(ctx context.Context, storeCode, path string) (string, error) {
	storeCode = strings.TrimSpace(storeCode)
	path = strings.TrimSpace(path)
	if storeCode == "" || path == "" {
		return "", nil
	}

	client, err := r.provider.Client(ctx)
	if err != nil {
		return "", pfirestore.WrapError("storeconfig.value", err)
	}

	snap, err := client.Collection(storeConfigCollection).Doc(storeCode).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return "", nil
		}
		return "", pfirestore.WrapError("storeconfig.value", err)
	}

	var doc struct {
		Values map[string]string `firestore:"values"`
	}
	if err := snap.DataTo(&doc); err != nil {
		return "", pfirestore.WrapError("storeconfig.value", err)
	}
	return doc.Values[encodeConfigPath(path)], nil
}

// encodeConfigPath rewrites the host's slash-delimited paths into legal
// Firestore map keys.
func encodeConfigPath(path string) string {
	return strings.ReplaceAll(path, "/", ".")
}
