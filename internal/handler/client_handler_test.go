package handler

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"clientbook/internal/auth"
	"clientbook/internal/model"
	"clientbook/internal/service"
	"clientbook/internal/storage"
)

// MockClientService is a mock implementation of service.ClientService.
type MockClientService struct {
	mock.Mock
}

func (m *MockClientService) List(ctx context.Context) ([]model.Client, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Client), args.Error(1)
}

func (m *MockClientService) GetByID(ctx context.Context, id uint) (*model.Client, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Client), args.Error(1)
}

func (m *MockClientService) Create(ctx context.Context, ownerID uint, in service.CreateClientInput) (*model.Client, error) {
	args := m.Called(ctx, ownerID, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Client), args.Error(1)
}

func (m *MockClientService) Update(ctx context.Context, id uint, in service.UpdateClientInput) (*model.Client, error) {
	args := m.Called(ctx, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Client), args.Error(1)
}

func (m *MockClientService) Delete(ctx context.Context, id uint) (*model.Client, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Client), args.Error(1)
}

type multipartBody struct {
	buf         bytes.Buffer
	writer      *multipart.Writer
	contentType string
}

func newMultipartBody(t *testing.T, fields map[string]string, withPhoto bool) *multipartBody {
	t.Helper()
	b := &multipartBody{}
	b.writer = multipart.NewWriter(&b.buf)
	for name, value := range fields {
		require.NoError(t, b.writer.WriteField(name, value))
	}
	if withPhoto {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", `form-data; name="foto"; filename="photo.png"`)
		header.Set("Content-Type", "image/png")
		part, err := b.writer.CreatePart(header)
		require.NoError(t, err)
		_, err = part.Write([]byte("png-bytes"))
		require.NoError(t, err)
	}
	require.NoError(t, b.writer.Close())
	b.contentType = b.writer.FormDataContentType()
	return b
}

func newClientTestHandler(t *testing.T) (*ClientHandler, *MockClientService, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewDiskPhotoStore(dir)
	require.NoError(t, err)
	svc := new(MockClientService)
	return NewClientHandler(svc, store), svc, dir
}

func TestClientHandler_Create_MissingPhoto(t *testing.T) {
	h, svc, _ := newClientTestHandler(t)

	body := newMultipartBody(t, map[string]string{"nome": "Ana", "endereco": "Rua A, 1"}, false)
	req := httptest.NewRequest(http.MethodPost, "/clientes", &body.buf)
	req.Header.Set(echo.HeaderContentType, body.contentType)
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)
	c.Set(auth.ContextUserIDKey, uint(7))

	err := h.Create(c)

	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadRequest, httpErr.Code)
	// service and repository are never reached without a photo
	svc.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
}

func TestClientHandler_Create_Success(t *testing.T) {
	h, svc, _ := newClientTestHandler(t)

	svc.On("Create", mock.Anything, uint(7), mock.MatchedBy(func(in service.CreateClientInput) bool {
		return in.Nome == "Ana" && in.Endereco == "Rua A, 1" &&
			in.Foto != nil && strings.HasSuffix(in.Foto.Path, ".png") &&
			in.Latitude.Valid
	})).Return(&model.Client{ID: 1, UserID: 7, Nome: "Ana", Endereco: "Rua A, 1"}, nil)

	body := newMultipartBody(t, map[string]string{
		"nome":     "Ana",
		"endereco": "Rua A, 1",
		"latitude": "-23.55052",
	}, true)
	req := httptest.NewRequest(http.MethodPost, "/clientes", &body.buf)
	req.Header.Set(echo.HeaderContentType, body.contentType)
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)
	c.Set(auth.ContextUserIDKey, uint(7))

	require.NoError(t, h.Create(c))
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), "client created successfully")
	svc.AssertExpectations(t)
}

func TestClientHandler_Create_Unauthenticated(t *testing.T) {
	h, svc, _ := newClientTestHandler(t)

	body := newMultipartBody(t, map[string]string{"nome": "Ana", "endereco": "Rua A, 1"}, true)
	req := httptest.NewRequest(http.MethodPost, "/clientes", &body.buf)
	req.Header.Set(echo.HeaderContentType, body.contentType)
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)
	// no userID in context: the guard never ran

	err := h.Create(c)

	var httpErr *echo.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusUnauthorized, httpErr.Code)
	svc.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
}

func TestClientHandler_Update_JSONPartialSemantics(t *testing.T) {
	h, svc, _ := newClientTestHandler(t)

	svc.On("Update", mock.Anything, uint(5), mock.MatchedBy(func(in service.UpdateClientInput) bool {
		// nome present, endereco absent, latitude explicitly null
		return in.Nome != nil && *in.Nome == "Ana Maria" &&
			in.Endereco == nil &&
			in.Latitude != nil && !in.Latitude.Valid &&
			in.Longitude == nil
	})).Return(&model.Client{ID: 5, Nome: "Ana Maria", Endereco: "Rua A, 1"}, nil)

	body := strings.NewReader(`{"nome": "Ana Maria", "latitude": null}`)
	req := httptest.NewRequest(http.MethodPut, "/clientes/5", body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("5")

	require.NoError(t, h.Update(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}

func TestClientHandler_Update_MultipartWithPhoto(t *testing.T) {
	h, svc, _ := newClientTestHandler(t)

	svc.On("Update", mock.Anything, uint(5), mock.MatchedBy(func(in service.UpdateClientInput) bool {
		return in.Foto != nil && strings.HasSuffix(in.Foto.Path, ".png") &&
			in.Nome != nil && *in.Nome == "Bia"
	})).Return(&model.Client{ID: 5, Nome: "Bia", Endereco: "Rua B, 2"}, nil)

	body := newMultipartBody(t, map[string]string{"nome": "Bia"}, true)
	req := httptest.NewRequest(http.MethodPut, "/clientes/5", &body.buf)
	req.Header.Set(echo.HeaderContentType, body.contentType)
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("5")

	require.NoError(t, h.Update(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}
