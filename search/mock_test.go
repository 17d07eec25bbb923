package search

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type mockBackend struct {
	mock.Mock
}

func (m *mockBackend) Search(ctx context.Context, req *Request) (*Result, error) {
	args := m.Called(ctx, req)
	if r := args.Get(0); r != nil {
		return r.(*Result), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockDocumentStore struct {
	mock.Mock
}

func (m *mockDocumentStore) Lookup(ctx context.Context, ids []string) (map[string]map[string]interface{}, error) {
	args := m.Called(ctx, ids)
	if r := args.Get(0); r != nil {
		return r.(map[string]map[string]interface{}), args.Error(1)
	}
	return nil, args.Error(1)
}

func storedEvent(id, importTime string) map[string]interface{} {
	return map[string]interface{}{
		"id":          id,
		"import_time": importTime,
	}
}
