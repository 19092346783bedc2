package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"foodshop/internal/domain"
	"foodshop/internal/repository"
	"foodshop/internal/service"
)

type Server struct {
	engine   *gin.Engine
	products *service.ProductService
	carts    *service.CartService
	orders   *service.OrderService
	log      logrus.FieldLogger
}

func NewServer(products *service.ProductService, carts *service.CartService, orders *service.OrderService, logger logrus.FieldLogger) *Server {
	r := gin.New()
	r.Use(requestLogger(logger), gin.Recovery())
	s := &Server{engine: r, products: products, carts: carts, orders: orders, log: logger}
	s.registerRoutes()
	return s
}

func (s *Server) Engine() *gin.Engine { return s.engine }

func (s *Server) registerRoutes() {
	// Swagger UI
	s.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := s.engine.Group("/api/v1")
	{
		products := v1.Group("/products")
		products.POST("", s.createProduct)
		products.GET(":id", s.getProduct)
		products.PUT(":id", s.updateProduct)
		products.DELETE(":id", s.deleteProduct)
		products.GET("", s.listProducts)

		orders := v1.Group("/orders")
		orders.POST("", s.placeOrder)
		orders.GET("", s.listOrders)
		orders.GET(":id", s.getOrder)
		orders.PUT(":id/status", s.updateOrderStatus)
		orders.PUT(":id/payment-status", s.updatePaymentStatus)

		customer := v1.Group("/customers/:customerId")
		customer.GET("/orders", s.listCustomerOrders)

		cart := customer.Group("/cart")
		cart.GET("", s.getCart)
		cart.DELETE("", s.clearCart)
		cart.POST("/items", s.addCartItem)
		cart.PUT("/items/:productId", s.setCartItem)
		cart.DELETE("/items/:productId", s.removeCartItem)
		cart.POST("/checkout", s.checkout)
	}
}

// Product handlers
type productReq struct {
	Name       string          `json:"name" binding:"required"`
	CategoryID *int64          `json:"category_id"`
	Price      decimal.Decimal `json:"price"`
	Stock      int64           `json:"stock" binding:"min=0"`
}

// @Summary Create product
// @Tags products
// @Accept json
// @Produce json
// @Param input body productReq true "Product"
// @Success 201 {object} domain.Product
// @Failure 400 {object} errorResponse
// @Router /products [post]
func (s *Server) createProduct(c *gin.Context) {
	var req productReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid json")
		return
	}
	p, err := s.products.Create(c, domain.Product{Name: req.Name, CategoryID: req.CategoryID, Price: req.Price, Stock: req.Stock})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// @Summary Get product by id
// @Tags products
// @Produce json
// @Param id path int true "Product ID"
// @Success 200 {object} domain.Product
// @Failure 400 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Router /products/{id} [get]
func (s *Server) getProduct(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	p, err := s.products.GetByID(c, id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// @Summary Update product
// @Tags products
// @Accept json
// @Produce json
// @Param id path int true "Product ID"
// @Param input body productReq true "Update"
// @Success 200 {object} domain.Product
// @Failure 400 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Router /products/{id} [put]
func (s *Server) updateProduct(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req productReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid json")
		return
	}
	p, err := s.products.Update(c, domain.Product{ID: id, Name: req.Name, CategoryID: req.CategoryID, Price: req.Price, Stock: req.Stock})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// @Summary Delete product
// @Tags products
// @Param id path int true "Product ID"
// @Success 204
// @Failure 400 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Router /products/{id} [delete]
func (s *Server) deleteProduct(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := s.products.Delete(c, id); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// @Summary List products
// @Tags products
// @Produce json
// @Success 200 {array} domain.Product
// @Router /products [get]
func (s *Server) listProducts(c *gin.Context) {
	list, err := s.products.List(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// Order handlers
type placeOrderReq struct {
	CustomerID      string             `json:"customer_id" binding:"required"`
	DeliveryAddress string             `json:"delivery_address"`
	Phone           string             `json:"phone"`
	Note            string             `json:"note"`
	PaymentMethodID *string            `json:"payment_method_id"`
	CouponID        *string            `json:"coupon_id"`
	Items           []service.LineItem `json:"items" binding:"required"`
}

// @Summary Place order
// @Description Проверяет остатки, создаёт заказ и списывает остатки одной транзакцией
// @Tags orders
// @Accept json
// @Produce json
// @Param input body placeOrderReq true "Order"
// @Success 201 {object} domain.PlacedOrder
// @Failure 400 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Failure 500 {object} errorResponse
// @Router /orders [post]
func (s *Server) placeOrder(c *gin.Context) {
	var req placeOrderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid json")
		return
	}
	placed, err := s.orders.PlaceOrder(c, service.PlaceOrderRequest{
		CustomerID:      req.CustomerID,
		Delivery:        domain.DeliveryInfo{Address: req.DeliveryAddress, Phone: req.Phone, Note: req.Note},
		PaymentMethodID: req.PaymentMethodID,
		CouponID:        req.CouponID,
		Lines:           req.Items,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, placed)
}

// @Summary Get order by id
// @Tags orders
// @Produce json
// @Param id path int true "Order ID"
// @Success 200 {object} domain.PlacedOrder
// @Failure 400 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Router /orders/{id} [get]
func (s *Server) getOrder(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	o, err := s.orders.GetOrder(c, id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// @Summary List all orders, newest first
// @Tags orders
// @Produce json
// @Success 200 {array} domain.Order
// @Router /orders [get]
func (s *Server) listOrders(c *gin.Context) {
	list, err := s.orders.ListAllOrders(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// @Summary List customer orders, newest first
// @Tags orders
// @Produce json
// @Param customerId path string true "Customer ID"
// @Success 200 {array} domain.Order
// @Router /customers/{customerId}/orders [get]
func (s *Server) listCustomerOrders(c *gin.Context) {
	list, err := s.orders.ListOrdersByCustomer(c, c.Param("customerId"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

type statusReq struct {
	Status string `json:"status" binding:"required"`
}

// @Summary Update order status
// @Tags orders
// @Accept json
// @Produce json
// @Param id path int true "Order ID"
// @Param input body statusReq true "pending_confirmation | confirmed | delivering | delivered | cancelled"
// @Success 200 {object} domain.Order
// @Failure 400 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Router /orders/{id}/status [put]
func (s *Server) updateOrderStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req statusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid json")
		return
	}
	o, err := s.orders.UpdateStatus(c, id, domain.OrderStatus(req.Status))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// @Summary Update payment status
// @Tags orders
// @Accept json
// @Produce json
// @Param id path int true "Order ID"
// @Param input body statusReq true "unpaid | paid"
// @Success 200 {object} domain.Order
// @Failure 400 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Router /orders/{id}/payment-status [put]
func (s *Server) updatePaymentStatus(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req statusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid json")
		return
	}
	o, err := s.orders.UpdatePaymentStatus(c, id, domain.PaymentStatus(req.Status))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

const (
	codeValidation   = "validation_error"
	codeNoStock      = "insufficient_stock"
	codeNotFound     = "not_found"
	codeInternal     = "internal_error"
	internalErrorMsg = "internal error"
)

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return id, true
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, errorResponse{Error: msg, Code: codeValidation})
}

// fail отвечает по классу ошибки; детали внутренних ошибок только в лог
func (s *Server) fail(c *gin.Context, err error) {
	status, code := mapErrorToStatus(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.log.WithError(err).WithField("request_id", c.GetString(requestIDKey)).Error("request failed")
		msg = internalErrorMsg
	}
	c.JSON(status, errorResponse{Error: msg, Code: code})
}

func mapErrorToStatus(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest, codeValidation
	case errors.Is(err, service.ErrNotEnoughStock):
		return http.StatusBadRequest, codeNoStock
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, codeNotFound
	default:
		return http.StatusInternalServerError, codeInternal
	}
}
