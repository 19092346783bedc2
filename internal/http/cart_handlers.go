package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"foodshop/internal/domain"
	"foodshop/internal/service"
)

type addCartItemReq struct {
	ProductID int64 `json:"product_id" binding:"required,gt=0"`
	Quantity  int64 `json:"quantity" binding:"required,gt=0"`
}

type setCartItemReq struct {
	Quantity int64 `json:"quantity" binding:"min=0"`
}

type checkoutReq struct {
	DeliveryAddress string  `json:"delivery_address"`
	Phone           string  `json:"phone"`
	Note            string  `json:"note"`
	PaymentMethodID *string `json:"payment_method_id"`
	CouponID        *string `json:"coupon_id"`
}

// @Summary Get customer cart
// @Tags cart
// @Produce json
// @Param customerId path string true "Customer ID"
// @Success 200 {object} domain.CartSnapshot
// @Router /customers/{customerId}/cart [get]
func (s *Server) getCart(c *gin.Context) {
	snap, err := s.carts.SnapshotForCustomer(c, c.Param("customerId"))
	s.cartResponse(c, snap, err)
}

// @Summary Add item to cart or increase its quantity
// @Tags cart
// @Accept json
// @Produce json
// @Param customerId path string true "Customer ID"
// @Param input body addCartItemReq true "Item"
// @Success 200 {object} domain.CartSnapshot
// @Failure 400 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Router /customers/{customerId}/cart/items [post]
func (s *Server) addCartItem(c *gin.Context) {
	var req addCartItemReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid json")
		return
	}
	snap, err := s.carts.AddForCustomer(c, c.Param("customerId"), req.ProductID, req.Quantity)
	s.cartResponse(c, snap, err)
}

// @Summary Set item quantity, 0 removes the item
// @Tags cart
// @Accept json
// @Produce json
// @Param customerId path string true "Customer ID"
// @Param productId path int true "Product ID"
// @Param input body setCartItemReq true "Quantity"
// @Success 200 {object} domain.CartSnapshot
// @Failure 400 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Router /customers/{customerId}/cart/items/{productId} [put]
func (s *Server) setCartItem(c *gin.Context) {
	productID, ok := pathID(c, "productId")
	if !ok {
		return
	}
	var req setCartItemReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid json")
		return
	}
	snap, err := s.carts.SetQuantityForCustomer(c, c.Param("customerId"), productID, req.Quantity)
	s.cartResponse(c, snap, err)
}

// @Summary Remove item from cart
// @Tags cart
// @Produce json
// @Param customerId path string true "Customer ID"
// @Param productId path int true "Product ID"
// @Success 200 {object} domain.CartSnapshot
// @Failure 404 {object} errorResponse
// @Router /customers/{customerId}/cart/items/{productId} [delete]
func (s *Server) removeCartItem(c *gin.Context) {
	productID, ok := pathID(c, "productId")
	if !ok {
		return
	}
	snap, err := s.carts.RemoveForCustomer(c, c.Param("customerId"), productID)
	s.cartResponse(c, snap, err)
}

// @Summary Clear cart
// @Tags cart
// @Produce json
// @Param customerId path string true "Customer ID"
// @Success 200 {object} domain.CartSnapshot
// @Router /customers/{customerId}/cart [delete]
func (s *Server) clearCart(c *gin.Context) {
	snap, err := s.carts.ClearForCustomer(c, c.Param("customerId"))
	s.cartResponse(c, snap, err)
}

// @Summary Place order from cart
// @Tags cart
// @Accept json
// @Produce json
// @Param customerId path string true "Customer ID"
// @Param input body checkoutReq false "Delivery"
// @Success 201 {object} domain.PlacedOrder
// @Failure 400 {object} errorResponse
// @Failure 500 {object} errorResponse
// @Router /customers/{customerId}/cart/checkout [post]
func (s *Server) checkout(c *gin.Context) {
	var req checkoutReq
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "invalid json")
			return
		}
	}
	placed, err := s.orders.Checkout(c, c.Param("customerId"), service.CheckoutRequest{
		Delivery:        domain.DeliveryInfo{Address: req.DeliveryAddress, Phone: req.Phone, Note: req.Note},
		PaymentMethodID: req.PaymentMethodID,
		CouponID:        req.CouponID,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, placed)
}

func (s *Server) cartResponse(c *gin.Context, snap *domain.CartSnapshot, err error) {
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}
