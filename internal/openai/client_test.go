package openai

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockProviderAPI is a mock for the raw provider API
type MockProviderAPI struct {
	mock.Mock
}

func (m *MockProviderAPI) CreateEmbeddings(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

func (m *MockProviderAPI) CreateCompletion(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

func TestClient_GenerateEmbedding_Success(t *testing.T) {
	mockAPI := new(MockProviderAPI)
	client := &Client{api: mockAPI}

	ctx := context.Background()
	text := "We offer haircuts starting at $20."
	expectedEmbedding := make([]float32, 1536)
	for i := range expectedEmbedding {
		expectedEmbedding[i] = float32(i) * 0.001
	}

	mockAPI.On("CreateEmbeddings", ctx, text).Return(expectedEmbedding, nil)

	embedding, err := client.GenerateEmbedding(ctx, text)

	assert.NoError(t, err)
	assert.Len(t, embedding, 1536)
	assert.Equal(t, expectedEmbedding, embedding)
	mockAPI.AssertExpectations(t)
}

func TestClient_GenerateEmbedding_EmptyText(t *testing.T) {
	client := NewClient("")

	ctx := context.Background()
	embedding, err := client.GenerateEmbedding(ctx, "")

	assert.Error(t, err)
	assert.Nil(t, embedding)
	assert.Equal(t, ErrEmptyText, err)
}

func TestClient_GenerateEmbedding_APIError(t *testing.T) {
	mockAPI := new(MockProviderAPI)
	client := &Client{api: mockAPI}

	ctx := context.Background()
	text := "Test text"
	apiErr := errors.New("API rate limit exceeded")

	mockAPI.On("CreateEmbeddings", ctx, text).Return(nil, apiErr)

	embedding, err := client.GenerateEmbedding(ctx, text)

	assert.Error(t, err)
	assert.Nil(t, embedding)
	assert.Contains(t, err.Error(), "failed to create embedding")
	mockAPI.AssertExpectations(t)
}

func TestClient_GenerateEmbedding_WrongDimensions(t *testing.T) {
	mockAPI := new(MockProviderAPI)
	client := &Client{api: mockAPI, dimensions: 1536}

	ctx := context.Background()
	mockAPI.On("CreateEmbeddings", ctx, "short").Return([]float32{0.1, 0.2}, nil)

	embedding, err := client.GenerateEmbedding(ctx, "short")

	assert.Error(t, err)
	assert.Nil(t, embedding)
	assert.Equal(t, ErrWrongDimensions, err)
}

func TestClient_GenerateCompletion_Success(t *testing.T) {
	mockAPI := new(MockProviderAPI)
	client := &Client{api: mockAPI}

	ctx := context.Background()
	mockAPI.On("CreateCompletion", ctx, "Decision (YES/NO):").Return("  YES\n", nil)

	text, err := client.GenerateCompletion(ctx, "Decision (YES/NO):")

	assert.NoError(t, err)
	assert.Equal(t, "YES", text)
	mockAPI.AssertExpectations(t)
}

func TestClient_GenerateCompletion_EmptyPrompt(t *testing.T) {
	client := NewClient("key")

	text, err := client.GenerateCompletion(context.Background(), "")

	assert.Error(t, err)
	assert.Empty(t, text)
	assert.Equal(t, ErrEmptyText, err)
}

func TestClient_GenerateCompletion_BlankReply(t *testing.T) {
	mockAPI := new(MockProviderAPI)
	client := &Client{api: mockAPI}

	ctx := context.Background()
	mockAPI.On("CreateCompletion", ctx, "hello").Return("   \n\t", nil)

	text, err := client.GenerateCompletion(ctx, "hello")

	assert.Error(t, err)
	assert.Empty(t, text)
	assert.Equal(t, ErrEmptyCompletion, err)
}

func TestClient_GenerateCompletion_APIError(t *testing.T) {
	mockAPI := new(MockProviderAPI)
	client := &Client{api: mockAPI}

	ctx := context.Background()
	apiErr := errors.New("upstream timeout")
	mockAPI.On("CreateCompletion", ctx, "hello").Return("", apiErr)

	text, err := client.GenerateCompletion(ctx, "hello")

	assert.Error(t, err)
	assert.Empty(t, text)
	assert.Contains(t, err.Error(), "failed to create completion")
}

func TestNewClient(t *testing.T) {
	client := NewClient("test-api-key")

	assert.NotNil(t, client)
	assert.NotNil(t, client.api)
	assert.Equal(t, DefaultEmbeddingDimensions, client.dimensions)
}

func TestNewClientFromEnv_NoKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	client, err := NewClientFromEnv()

	assert.Nil(t, client)
	assert.Equal(t, ErrNoAPIKey, err)
}

func TestFactory_ClientFor(t *testing.T) {
	f := NewFactory("fallback-key")

	c1, err := f.ClientFor("workspace-key")
	assert.NoError(t, err)
	assert.NotNil(t, c1)

	// same key yields the cached client
	c2, err := f.ClientFor("workspace-key")
	assert.NoError(t, err)
	assert.Same(t, c1, c2)

	// empty key falls back to the process-wide key
	c3, err := f.ClientFor("")
	assert.NoError(t, err)
	assert.NotSame(t, c1, c3)
}

func TestFactory_ClientFor_NoKeyAnywhere(t *testing.T) {
	f := NewFactory("")

	c, err := f.ClientFor("")

	assert.Nil(t, c)
	assert.Equal(t, ErrNoAPIKey, err)
}
