package ginserver

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	gin "github.com/gin-gonic/gin"

	"carrental/internal/app/commands"
	"carrental/internal/app/dto"
	CarsApp "carrental/internal/app/handlers/cars"
	"carrental/internal/app/queries"
	domaincar "carrental/internal/domain/car"
)

const maxImageBytes = 8 << 20

// CarHandler serves the catalog and admin management routes. Uploads ride a
// separate bus: the image upload is a network call and must not run on the
// transactional command chain.
type CarHandler struct {
	Commands commands.Bus
	Uploads  commands.Bus
	Queries  queries.Bus
}

func (h CarHandler) Catalog(c *gin.Context) {
	params := domaincar.SearchParams{
		Brand:         c.Query("brand"),
		OnlyAvailable: c.Query("available") == "true",
		SortDesc:      c.Query("order") == "desc",
		SortBy:        domaincar.SortField(c.Query("sort")),
	}
	if raw := c.Query("max_price"); raw != "" {
		if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
			params.MaxPricePerDay = v
		}
	}
	if raw := c.Query("offset"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			params.Offset = v
		}
	}
	if raw := c.Query("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			params.Limit = v
		}
	}
	result, err := queries.Ask[CarsApp.SearchCarsQuery, dto.CarCollection](c.Request.Context(), h.Queries, CarsApp.SearchCarsQuery{Params: params})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h CarHandler) Get(c *gin.Context) {
	id, ok := carIDParam(c)
	if !ok {
		return
	}
	result, err := queries.Ask[CarsApp.GetCarQuery, dto.CarSummary](c.Request.Context(), h.Queries, CarsApp.GetCarQuery{CarID: id})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

type createCarRequest struct {
	Name             string `json:"name"`
	Brand            string `json:"brand"`
	PricePerDayMinor int64  `json:"price_per_day_minor"`
	Currency         string `json:"currency"`
	ImageURL         string `json:"image_url"`
}

func (h CarHandler) Create(c *gin.Context) {
	user, ok := requireAdmin(c)
	if !ok {
		return
	}
	var req createCarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cmd := CarsApp.CreateCarCommand{
		Requester:        user,
		Name:             req.Name,
		Brand:            req.Brand,
		PricePerDayMinor: req.PricePerDayMinor,
		Currency:         req.Currency,
		ImageURL:         req.ImageURL,
	}
	result, err := commands.Dispatch[CarsApp.CreateCarCommand, *CarsApp.CarResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

type updateCarRequest struct {
	Name             *string `json:"name"`
	Brand            *string `json:"brand"`
	PricePerDayMinor *int64  `json:"price_per_day_minor"`
	Available        *bool   `json:"available"`
	ImageURL         *string `json:"image_url"`
}

func (h CarHandler) Update(c *gin.Context) {
	user, ok := requireAdmin(c)
	if !ok {
		return
	}
	id, ok := carIDParam(c)
	if !ok {
		return
	}
	var req updateCarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cmd := CarsApp.UpdateCarCommand{
		Requester:        user,
		CarID:            id,
		Name:             req.Name,
		Brand:            req.Brand,
		PricePerDayMinor: req.PricePerDayMinor,
		Available:        req.Available,
		ImageURL:         req.ImageURL,
	}
	result, err := commands.Dispatch[CarsApp.UpdateCarCommand, *CarsApp.CarResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h CarHandler) Delete(c *gin.Context) {
	user, ok := requireAdmin(c)
	if !ok {
		return
	}
	id, ok := carIDParam(c)
	if !ok {
		return
	}
	cmd := CarsApp.DeleteCarCommand{Requester: user, CarID: id}
	result, err := commands.Dispatch[CarsApp.DeleteCarCommand, *CarsApp.DeleteCarResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h CarHandler) UploadImage(c *gin.Context) {
	user, ok := requireAdmin(c)
	if !ok {
		return
	}
	id, ok := carIDParam(c)
	if !ok {
		return
	}
	content, err := io.ReadAll(io.LimitReader(c.Request.Body, maxImageBytes+1))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}
	if len(content) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "empty image"})
		return
	}
	if len(content) > maxImageBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "image too large"})
		return
	}
	contentType := c.ContentType()
	if contentType == "" {
		contentType = strings.TrimSpace(c.GetHeader("Content-Type"))
	}
	cmd := CarsApp.AttachImageCommand{
		Requester:   user,
		CarID:       id,
		Content:     content,
		ContentType: contentType,
	}
	result, err := commands.Dispatch[CarsApp.AttachImageCommand, *CarsApp.CarResult](c.Request.Context(), h.Uploads, cmd)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func carIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid car id"})
		return 0, false
	}
	return id, true
}
