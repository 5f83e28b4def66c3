package handler

import (
    "bytes"
    "context"
    "encoding/json"
    "net/http"
    "strconv"
    "strings"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/iliyamo/property-listings/internal/middleware"
    "github.com/iliyamo/property-listings/internal/model"
    "github.com/iliyamo/property-listings/internal/service"
)

// maxPageSize caps pageSize on listing queries.
const maxPageSize = 100

// PropertyCatalog is the part of service.PropertyService used here.
type PropertyCatalog interface {
    List(ctx context.Context, f model.PropertyFilter) ([]*model.Property, error)
    Get(ctx context.Context, id string) (*model.Property, error)
    Create(ctx context.Context, who *model.Identity, in service.PropertyInput) (*model.Property, error)
    Update(ctx context.Context, who *model.Identity, id string, in service.PropertyInput) (*model.Property, error)
    Delete(ctx context.Context, who *model.Identity, id string) error
}

type PropertyHandler struct {
    Properties PropertyCatalog
    Log        *zap.Logger
}

func NewPropertyHandler(p PropertyCatalog, log *zap.Logger) *PropertyHandler {
    return &PropertyHandler{Properties: p, Log: log}
}

// numeric accepts a JSON number, a numeric string or null and keeps the raw
// text. Parsing and range checks happen in the service.
type numeric string

func (n *numeric) UnmarshalJSON(b []byte) error {
    b = bytes.TrimSpace(b)
    if bytes.Equal(b, []byte("null")) {
        *n = ""
        return nil
    }
    if len(b) > 0 && b[0] == '"' {
        var s string
        if err := json.Unmarshal(b, &s); err != nil {
            return err
        }
        *n = numeric(strings.TrimSpace(s))
        return nil
    }
    var num json.Number
    if err := json.Unmarshal(b, &num); err != nil {
        return err
    }
    *n = numeric(num.String())
    return nil
}

type imageReq struct {
    URL string `json:"url" validate:"max=2048"`
}

type propertyReq struct {
    Title            string      `json:"title" validate:"required,max=255"`
    Price            numeric     `json:"price"`
    Location         string      `json:"location" validate:"required,max=255"`
    Image            string      `json:"image" validate:"required,max=2048"`
    Type             string      `json:"type" validate:"required"`
    Bedrooms         numeric     `json:"bedrooms"`
    Bathrooms        numeric     `json:"bathrooms"`
    Operation        string      `json:"operation"`
    Description      string      `json:"description" validate:"required"`
    Furnished        bool        `json:"furnished"`
    ConstructionArea *string     `json:"constructionArea" validate:"omitempty,max=64"`
    LandArea         *string     `json:"landArea" validate:"omitempty,max=64"`
    Images           *[]imageReq `json:"images" validate:"omitempty,dive"`
}

func (r propertyReq) input() service.PropertyInput {
    in := service.PropertyInput{
        Title:            strings.TrimSpace(r.Title),
        Price:            string(r.Price),
        Location:         strings.TrimSpace(r.Location),
        Image:            strings.TrimSpace(r.Image),
        Type:             strings.TrimSpace(r.Type),
        Bedrooms:         string(r.Bedrooms),
        Bathrooms:        string(r.Bathrooms),
        Operation:        strings.TrimSpace(r.Operation),
        Description:      r.Description,
        Furnished:        r.Furnished,
        ConstructionArea: r.ConstructionArea,
        LandArea:         r.LandArea,
    }
    if r.Images != nil {
        urls := make([]string, 0, len(*r.Images))
        for _, img := range *r.Images {
            urls = append(urls, strings.TrimSpace(img.URL))
        }
        in.Images = &urls
    }
    return in
}

// List returns listings matching the query filters, newest first.
func (h *PropertyHandler) List(c echo.Context) error {
    f, msg := parseFilter(c)
    if msg != "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"message": msg})
    }
    ctx, cancel := requestContext(c)
    defer cancel()

    props, err := h.Properties.List(ctx, f)
    if err != nil {
        return respondError(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, props)
}

// parseFilter reads listing filters from the query string. A non-empty
// message reports the first malformed parameter.
func parseFilter(c echo.Context) (model.PropertyFilter, string) {
    var f model.PropertyFilter
    f.Type = strings.TrimSpace(c.QueryParam("type"))
    f.Operation = strings.TrimSpace(c.QueryParam("operation"))
    f.Location = strings.TrimSpace(c.QueryParam("location"))
    f.OwnerID = strings.TrimSpace(c.QueryParam("ownerId"))

    for _, p := range []struct {
        name string
        dst  **float64
    }{{"minPrice", &f.MinPrice}, {"maxPrice", &f.MaxPrice}} {
        raw := strings.TrimSpace(c.QueryParam(p.name))
        if raw == "" {
            continue
        }
        v, err := strconv.ParseFloat(raw, 64)
        if err != nil || v < 0 {
            return f, p.name + " must be a non-negative number."
        }
        *p.dst = &v
    }
    for _, p := range []struct {
        name string
        dst  **int
    }{{"bedrooms", &f.MinBedrooms}, {"bathrooms", &f.MinBathrooms}} {
        raw := strings.TrimSpace(c.QueryParam(p.name))
        if raw == "" {
            continue
        }
        v, err := strconv.Atoi(raw)
        if err != nil || v < 0 {
            return f, p.name + " must be a non-negative integer."
        }
        *p.dst = &v
    }

    page, _ := strconv.Atoi(c.QueryParam("page"))
    if page < 1 { page = 1 }
    ps, _ := strconv.Atoi(c.QueryParam("pageSize"))
    if ps < 0 { ps = 0 }
    if ps > maxPageSize { ps = maxPageSize }
    if ps > 0 {
        f.Limit = ps
        f.Offset = (page - 1) * ps
    }
    return f, ""
}

func (h *PropertyHandler) Get(c echo.Context) error {
    ctx, cancel := requestContext(c)
    defer cancel()

    p, err := h.Properties.Get(ctx, c.Param("id"))
    if err != nil {
        return respondError(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, p)
}

// Create stores a listing owned by the caller.
func (h *PropertyHandler) Create(c echo.Context) error {
    var req propertyReq
    if ok, err := bind(c, &req); !ok {
        return err
    }
    ctx, cancel := requestContext(c)
    defer cancel()

    p, err := h.Properties.Create(ctx, middleware.IdentityFrom(c), req.input())
    if err != nil {
        return respondError(c, h.Log, err)
    }
    return c.JSON(http.StatusCreated, p)
}

// Update replaces the fields of a listing. Omitting images keeps the
// stored gallery; sending an array replaces it.
func (h *PropertyHandler) Update(c echo.Context) error {
    var req propertyReq
    if ok, err := bind(c, &req); !ok {
        return err
    }
    ctx, cancel := requestContext(c)
    defer cancel()

    p, err := h.Properties.Update(ctx, middleware.IdentityFrom(c), c.Param("id"), req.input())
    if err != nil {
        return respondError(c, h.Log, err)
    }
    return c.JSON(http.StatusOK, p)
}

func (h *PropertyHandler) Delete(c echo.Context) error {
    ctx, cancel := requestContext(c)
    defer cancel()

    if err := h.Properties.Delete(ctx, middleware.IdentityFrom(c), c.Param("id")); err != nil {
        return respondError(c, h.Log, err)
    }
    return c.NoContent(http.StatusNoContent)
}
