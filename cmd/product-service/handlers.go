package main

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MikeMC777/tienda-ecom/internal/apperr"
	"github.com/MikeMC777/tienda-ecom/internal/httpx"
	prod "github.com/MikeMC777/tienda-ecom/internal/product"
)

func newRouter(repo prod.Repository, tokens httpx.Verifier) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), httpx.RequestID())
	registerRoutes(r, repo, tokens)
	return r
}

func registerRoutes(r *gin.Engine, repo prod.Repository, tokens httpx.Verifier) {
	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	g := r.Group("/api/product")
	g.GET("/get_all_products", listProductsHandler(repo))
	g.GET("/get_single_product/:id", getProductHandler(repo))

	admin := g.Group("", httpx.AuthGuard(tokens), httpx.AdminGuard())
	admin.POST("/create", createProductHandler(repo))
	admin.PUT("/update_product/:id", updateProductHandler(repo))
	admin.DELETE("/delete_product/:id", deleteProductHandler(repo))
}

// parsePrice accepts a positive decimal such as "199.90".
func parsePrice(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil || !d.IsPositive() {
		return decimal.Zero, apperr.Invalid("Price must be a positive number")
	}
	return d, nil
}

// @Summary List products
// @Tags product
// @Param q query string false "search"
// @Param limit query int false "page size"
// @Param offset query int false "offset"
// @Success 200 {object} httpx.Envelope
// @Router /product/get_all_products [get]
func listProductsHandler(repo prod.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
		offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
		q := prod.Query{Q: c.Query("q"), Limit: limit, Offset: offset}.Normalize()

		items, err := repo.List(c.Request.Context(), q)
		if err != nil {
			httpx.Fail(c, apperr.Internalf(err, "list products"))
			return
		}
		if items == nil {
			items = []prod.Product{}
		}
		httpx.OK(c, http.StatusOK, "Products fetched successfully",
			prod.ListResponse{Q: q.Q, Limit: q.Limit, Offset: q.Offset, Items: items})
	}
}

func getProductHandler(repo prod.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := repo.GetByID(c.Request.Context(), c.Param("id"))
		if errors.Is(err, prod.ErrNotFound) {
			httpx.Fail(c, apperr.NotFoundf("Product not found"))
			return
		}
		if err != nil {
			httpx.Fail(c, apperr.Internalf(err, "get product"))
			return
		}
		httpx.OK(c, http.StatusOK, "Product fetched successfully", p)
	}
}

func createProductHandler(repo prod.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req prod.CreateProductRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httpx.BadRequest(c, "Invalid request body")
			return
		}
		if strings.TrimSpace(req.Name) == "" || req.Price == "" {
			httpx.BadRequest(c, "Product name and price are required")
			return
		}
		price, err := parsePrice(req.Price)
		if err != nil {
			httpx.Fail(c, err)
			return
		}
		if req.Stock < 0 {
			httpx.BadRequest(c, "Stock must be non-negative")
			return
		}
		p := &prod.Product{
			ID:          uuid.NewString(),
			Name:        strings.TrimSpace(req.Name),
			Price:       price,
			Description: req.Description,
			Category:    req.Category,
			Image:       req.Image,
			Rating:      req.Rating,
			Type:        req.Type,
			Stock:       req.Stock,
		}
		if err := repo.Create(c.Request.Context(), p); err != nil {
			httpx.Fail(c, apperr.Internalf(err, "create product"))
			return
		}
		httpx.OK(c, http.StatusCreated, "Product created successfully", p)
	}
}

// updateProductHandler applies only the fields present in the body.
func updateProductHandler(repo prod.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req prod.UpdateProductRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			httpx.BadRequest(c, "Invalid request body")
			return
		}
		ctx := c.Request.Context()
		p, err := repo.GetByID(ctx, c.Param("id"))
		if errors.Is(err, prod.ErrNotFound) {
			httpx.Fail(c, apperr.NotFoundf("Product not found"))
			return
		}
		if err != nil {
			httpx.Fail(c, apperr.Internalf(err, "get product"))
			return
		}

		if req.Name != nil {
			if strings.TrimSpace(*req.Name) == "" {
				httpx.BadRequest(c, "Product name cannot be empty")
				return
			}
			p.Name = strings.TrimSpace(*req.Name)
		}
		if req.Price != nil {
			price, err := parsePrice(*req.Price)
			if err != nil {
				httpx.Fail(c, err)
				return
			}
			p.Price = price
		}
		if req.Stock != nil {
			if *req.Stock < 0 {
				httpx.BadRequest(c, "Stock must be non-negative")
				return
			}
			p.Stock = *req.Stock
		}
		if req.Description != nil {
			p.Description = *req.Description
		}
		if req.Category != nil {
			p.Category = *req.Category
		}
		if req.Image != nil {
			p.Image = *req.Image
		}
		if req.Rating != nil {
			p.Rating = *req.Rating
		}
		if req.Type != nil {
			p.Type = *req.Type
		}

		if err := repo.Update(ctx, p); err != nil {
			if errors.Is(err, prod.ErrNotFound) {
				httpx.Fail(c, apperr.NotFoundf("Product not found"))
				return
			}
			httpx.Fail(c, apperr.Internalf(err, "update product"))
			return
		}
		httpx.OK(c, http.StatusOK, "Product updated successfully", p)
	}
}

func deleteProductHandler(repo prod.Repository) gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, err := repo.Delete(c.Request.Context(), c.Param("id"))
		if err != nil {
			httpx.Fail(c, apperr.Internalf(err, "delete product"))
			return
		}
		if !ok {
			httpx.Fail(c, apperr.NotFoundf("Product not found"))
			return
		}
		httpx.OK(c, http.StatusOK, "Product deleted successfully", nil)
	}
}
