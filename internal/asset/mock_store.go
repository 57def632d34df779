package asset

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) Put(ctx context.Context, upload Upload) (Asset, error) {
	if upload.Body != nil {
		_, _ = io.Copy(io.Discard, upload.Body)
	}
	args := m.Called(ctx, upload)
	return args.Get(0).(Asset), args.Error(1)
}

func (m *MockStore) Delete(ctx context.Context, url string) error {
	args := m.Called(ctx, url)
	return args.Error(0)
}
