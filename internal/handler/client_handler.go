package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"clientbook/internal/auth"
	"clientbook/internal/errors"
	"clientbook/internal/model"
	"clientbook/internal/service"
	"clientbook/internal/storage"
)

// ClientHandler handles client record endpoints.
type ClientHandler struct {
	svc    service.ClientService
	photos storage.PhotoStore
}

// NewClientHandler creates a new client handler.
func NewClientHandler(svc service.ClientService, photos storage.PhotoStore) *ClientHandler {
	return &ClientHandler{svc: svc, photos: photos}
}

// OptionalDecimal distinguishes an absent JSON field from an explicit null.
// UnmarshalJSON only runs when the key is present, so Set marks presence and
// Value carries the decoded decimal or null.
type OptionalDecimal struct {
	Set   bool
	Value decimal.NullDecimal
}

// UnmarshalJSON implements json.Unmarshaler.
func (o *OptionalDecimal) UnmarshalJSON(data []byte) error {
	o.Set = true
	return o.Value.UnmarshalJSON(data)
}

// UpdateClientRequest is the JSON body for partial updates. Absent fields
// keep their prior value; an explicit null clears a coordinate.
type UpdateClientRequest struct {
	Nome      *string         `json:"nome"`
	Telefone  *string         `json:"telefone"`
	Endereco  *string         `json:"endereco"`
	Latitude  OptionalDecimal `json:"latitude"`
	Longitude OptionalDecimal `json:"longitude"`
}

// ClientResponse wraps a client together with an operation message.
type ClientResponse struct {
	model.Client
	Message string `json:"message"`
}

// DeleteClientResponse confirms a removal.
type DeleteClientResponse struct {
	Message string `json:"message"`
	ID      uint   `json:"id"`
}

// List godoc
// @Summary List clients
// @Tags clients
// @Produce json
// @Security BearerAuth
// @Success 200 {array} model.Client
// @Failure 401 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /clientes [get]
func (h *ClientHandler) List(c echo.Context) error {
	clients, err := h.svc.List(c.Request().Context())
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, clients)
}

// GetByID godoc
// @Summary Get client by id
// @Tags clients
// @Produce json
// @Security BearerAuth
// @Param id path int true "Client ID"
// @Success 200 {object} model.Client
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /clientes/{id} [get]
func (h *ClientHandler) GetByID(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{Error: "invalid id"})
	}

	client, err := h.svc.GetByID(c.Request().Context(), uint(id))
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}
	return c.JSON(http.StatusOK, client)
}

// Create godoc
// @Summary Create a client with a mandatory photo
// @Tags clients
// @Accept mpfd
// @Produce json
// @Security BearerAuth
// @Param nome formData string true "Name"
// @Param endereco formData string true "Address"
// @Param telefone formData string false "Phone"
// @Param latitude formData number false "Latitude"
// @Param longitude formData number false "Longitude"
// @Param foto formData file true "Photo (jpeg, png, gif or webp, max 5MB)"
// @Success 201 {object} ClientResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /clientes [post]
func (h *ClientHandler) Create(c echo.Context) error {
	ownerID, ok := auth.UserIDFromContext(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, errors.ErrorResponse{Error: "missing or invalid token"})
	}

	lat, err := parseCoordinate(c.FormValue("latitude"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{Error: "invalid latitude"})
	}
	lon, err := parseCoordinate(c.FormValue("longitude"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{Error: "invalid longitude"})
	}

	fileHeader, err := c.FormFile("foto")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
			Error:   "photo is required",
			Details: `send an image in the multipart field "foto"`,
		})
	}
	stored, err := h.photos.Save(c.Request().Context(), fileHeader)
	if err != nil {
		return uploadError(err)
	}

	in := service.CreateClientInput{
		Nome:      c.FormValue("nome"),
		Endereco:  c.FormValue("endereco"),
		Telefone:  optionalString(c.FormValue("telefone")),
		Latitude:  lat,
		Longitude: lon,
		Foto:      stored,
	}

	client, err := h.svc.Create(c.Request().Context(), ownerID, in)
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}

	return c.JSON(http.StatusCreated, ClientResponse{Client: *client, Message: "client created successfully"})
}

// Update godoc
// @Summary Update a client; all fields optional
// @Tags clients
// @Accept mpfd
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Client ID"
// @Success 200 {object} ClientResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /clientes/{id} [put]
func (h *ClientHandler) Update(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{Error: "invalid id"})
	}

	var in service.UpdateClientInput
	contentType := c.Request().Header.Get(echo.HeaderContentType)
	if strings.HasPrefix(contentType, echo.MIMEMultipartForm) {
		in, err = h.bindMultipartUpdate(c)
		if err != nil {
			return err
		}
	} else {
		var req UpdateClientRequest
		if err := c.Bind(&req); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{Error: "invalid request body"})
		}
		in = service.UpdateClientInput{
			Nome:     req.Nome,
			Endereco: req.Endereco,
			Telefone: req.Telefone,
		}
		if req.Latitude.Set {
			in.Latitude = &req.Latitude.Value
		}
		if req.Longitude.Set {
			in.Longitude = &req.Longitude.Value
		}
	}

	client, err := h.svc.Update(c.Request().Context(), uint(id), in)
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}

	return c.JSON(http.StatusOK, ClientResponse{Client: *client, Message: "client updated successfully"})
}

// bindMultipartUpdate reads the partial fields of a multipart update. Field
// presence is checked on the parsed form so an absent field and an empty one
// can be told apart. The photo is stored last: everything that can still fail
// with 400 happens before a file lands on disk.
func (h *ClientHandler) bindMultipartUpdate(c echo.Context) (service.UpdateClientInput, error) {
	var in service.UpdateClientInput

	form, err := c.MultipartForm()
	if err != nil {
		return in, echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{Error: "invalid multipart form"})
	}

	formValue := func(name string) *string {
		if vs, ok := form.Value[name]; ok && len(vs) > 0 {
			return &vs[0]
		}
		return nil
	}

	in.Nome = formValue("nome")
	in.Endereco = formValue("endereco")
	in.Telefone = formValue("telefone")

	if raw := formValue("latitude"); raw != nil {
		lat, err := parseCoordinate(*raw)
		if err != nil {
			return in, echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{Error: "invalid latitude"})
		}
		in.Latitude = &lat
	}
	if raw := formValue("longitude"); raw != nil {
		lon, err := parseCoordinate(*raw)
		if err != nil {
			return in, echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{Error: "invalid longitude"})
		}
		in.Longitude = &lon
	}

	if files := form.File["foto"]; len(files) > 0 {
		stored, err := h.photos.Save(c.Request().Context(), files[0])
		if err != nil {
			return in, uploadError(err)
		}
		in.Foto = stored
	}
	return in, nil
}

// Delete godoc
// @Summary Delete a client and its photo
// @Tags clients
// @Produce json
// @Security BearerAuth
// @Param id path int true "Client ID"
// @Success 200 {object} DeleteClientResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /clientes/{id} [delete]
func (h *ClientHandler) Delete(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{Error: "invalid id"})
	}

	client, err := h.svc.Delete(c.Request().Context(), uint(id))
	if err != nil {
		httpErr := errors.MapErrorToHTTP(err)
		return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
	}

	return c.JSON(http.StatusOK, DeleteClientResponse{
		Message: "client removed successfully",
		ID:      client.ID,
	})
}

// uploadError maps photo store failures to 400 responses with details.
func uploadError(err error) error {
	switch err {
	case storage.ErrPhotoTooLarge:
		return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
			Error:   "file too large",
			Details: "maximum allowed size is 5MB",
		})
	case storage.ErrPhotoType:
		return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
			Error:   "file type not allowed",
			Details: "allowed types: image/jpeg, image/png, image/gif, image/webp",
		})
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, errors.ErrorResponse{Error: "internal server error"})
	}
}

// parseCoordinate converts a form value to a nullable decimal. An empty
// string is an explicit null.
func parseCoordinate(raw string) (decimal.NullDecimal, error) {
	if strings.TrimSpace(raw) == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}, nil
}

func optionalString(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
