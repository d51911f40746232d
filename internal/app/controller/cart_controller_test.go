package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/atelier-backend/internal/app/model"
	"github.com/ikkim/atelier-backend/internal/app/repository"
	"github.com/ikkim/atelier-backend/internal/app/service"
	"github.com/ikkim/atelier-backend/internal/cart"
	"github.com/ikkim/atelier-backend/internal/db"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type cartResponse struct {
	Error     string        `json:"error"`
	Message   string        `json:"message"`
	LoadError string        `json:"load_error"`
	Cart      cart.Snapshot `json:"cart"`
}

type cartControllerFixture struct {
	router   *gin.Engine
	db       *gorm.DB
	user     *model.User
	products map[string]*model.Product
}

func setupCartControllerTest(t *testing.T) *cartControllerFixture {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})

	cartRepo := repository.NewCartRepository(testDB)
	productRepo := repository.NewProductRepository(testDB)
	registry := cart.NewRegistry(repository.NewCartStore(cartRepo, productRepo), cart.WithMaxQuantity(10))
	cartController := NewCartController(service.NewCartService(registry))

	// Create test user
	user := &model.User{
		Email:        "test@example.com",
		PasswordHash: "hash",
		Name:         "Test User",
		Role:         model.RoleUser,
	}
	require.NoError(t, testDB.Create(user).Error)

	products := map[string]*model.Product{
		"prod-1":  {ID: "prod-1", Title: "Harbor at Dusk", Price: decimal.NewFromInt(10), Category: model.CategoryPainting, OnSale: true},
		"prod-2":  {ID: "prod-2", Title: "Harbor Print", Price: decimal.NewFromInt(5), Category: model.CategoryPrint, OnSale: true},
		"private": {ID: "private", Title: "Private Collection", Price: decimal.NewFromInt(90), Category: model.CategorySculpture},
	}
	for _, p := range products {
		require.NoError(t, productRepo.Create(context.Background(), p))
	}

	gin.SetMode(gin.TestMode)
	router := gin.New()
	group := router.Group("/cart", func(c *gin.Context) {
		setUserIDInContext(c, user.ID)
	})
	group.GET("", cartController.GetCart)
	group.POST("/reload", cartController.ReloadCart)
	group.POST("", cartController.AddToCart)
	group.PUT("/:product_id", cartController.UpdateCartItem)
	group.DELETE("/:product_id", cartController.RemoveFromCart)
	group.DELETE("", cartController.ClearCart)

	return &cartControllerFixture{
		router:   router,
		db:       testDB,
		user:     user,
		products: products,
	}
}

// Helper function to set user ID in context
func setUserIDInContext(c *gin.Context, userID uint) {
	c.Set("user_id", userID)
}

func (f *cartControllerFixture) do(t *testing.T, method, path string, body interface{}) (int, cartResponse) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	var resp cartResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return w.Code, resp
}

func (f *cartControllerFixture) seed(t *testing.T, productID string, quantity int) {
	t.Helper()
	require.NoError(t, f.db.Create(&model.CartItem{
		UserID:    f.user.ID,
		ProductID: productID,
		Quantity:  quantity,
	}).Error)
}

func quantitiesOf(snap cart.Snapshot) map[string]int {
	out := make(map[string]int, len(snap.Items))
	for _, item := range snap.Items {
		out[item.ProductID] = item.Quantity
	}
	return out
}

func TestCartController_GetCart_Empty(t *testing.T) {
	f := setupCartControllerTest(t)

	code, resp := f.do(t, http.MethodGet, "/cart", nil)

	assert.Equal(t, http.StatusOK, code)
	assert.Empty(t, resp.Cart.Items)
	assert.Zero(t, resp.Cart.TotalItems)
	assert.Empty(t, resp.LoadError)
}

func TestCartController_AddToEmptyCart(t *testing.T) {
	f := setupCartControllerTest(t)

	code, resp := f.do(t, http.MethodPost, "/cart", gin.H{"product_id": "prod-1", "quantity": 1})

	assert.Equal(t, http.StatusCreated, code)
	require.Len(t, resp.Cart.Items, 1)
	assert.Equal(t, "prod-1", resp.Cart.Items[0].ProductID)
	assert.Equal(t, 1, resp.Cart.Items[0].Quantity)
	assert.Equal(t, "Harbor at Dusk", resp.Cart.Items[0].Product.Title)
	assert.Equal(t, 1, resp.Cart.TotalItems)
}

func TestCartController_AddDefaultsToOne(t *testing.T) {
	f := setupCartControllerTest(t)

	code, resp := f.do(t, http.MethodPost, "/cart", gin.H{"product_id": "prod-2"})

	assert.Equal(t, http.StatusCreated, code)
	assert.Equal(t, map[string]int{"prod-2": 1}, quantitiesOf(resp.Cart))
}

func TestCartController_AddMergesExistingLine(t *testing.T) {
	f := setupCartControllerTest(t)
	f.seed(t, "prod-1", 2)

	code, resp := f.do(t, http.MethodPost, "/cart", gin.H{"product_id": "prod-1", "quantity": 1})
	assert.Equal(t, http.StatusCreated, code)
	assert.Equal(t, map[string]int{"prod-1": 3}, quantitiesOf(resp.Cart))

	var rows int64
	f.db.Model(&model.CartItem{}).Where("user_id = ?", f.user.ID).Count(&rows)
	assert.Equal(t, int64(1), rows)
}

func TestCartController_UpdateToZeroIsRejected(t *testing.T) {
	f := setupCartControllerTest(t)
	f.seed(t, "prod-1", 1)

	code, resp := f.do(t, http.MethodPut, "/cart/prod-1", gin.H{"quantity": 0})

	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "CART_INVALID_QUANTITY", resp.Error)

	_, resp = f.do(t, http.MethodGet, "/cart", nil)
	assert.Equal(t, map[string]int{"prod-1": 1}, quantitiesOf(resp.Cart))
}

func TestCartController_Totals(t *testing.T) {
	f := setupCartControllerTest(t)
	f.seed(t, "prod-1", 2)
	f.seed(t, "prod-2", 1)

	code, resp := f.do(t, http.MethodGet, "/cart", nil)

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, 3, resp.Cart.TotalItems)
	assert.True(t, decimal.NewFromInt(25).Equal(resp.Cart.TotalPrice), resp.Cart.TotalPrice.String())
}

func TestCartController_RemoveMissingProductIsNoop(t *testing.T) {
	f := setupCartControllerTest(t)
	f.seed(t, "prod-1", 1)

	code, resp := f.do(t, http.MethodDelete, "/cart/prod-404", nil)

	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, map[string]int{"prod-1": 1}, quantitiesOf(resp.Cart))
}

func TestCartController_UpdateRemoveClear(t *testing.T) {
	f := setupCartControllerTest(t)
	f.seed(t, "prod-1", 1)
	f.seed(t, "prod-2", 1)

	code, resp := f.do(t, http.MethodPut, "/cart/prod-2", gin.H{"quantity": 4})
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, map[string]int{"prod-1": 1, "prod-2": 4}, quantitiesOf(resp.Cart))

	code, resp = f.do(t, http.MethodDelete, "/cart/prod-1", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, map[string]int{"prod-2": 4}, quantitiesOf(resp.Cart))

	code, resp = f.do(t, http.MethodDelete, "/cart", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Empty(t, resp.Cart.Items)
	assert.False(t, resp.Cart.Loading)

	var rows int64
	f.db.Model(&model.CartItem{}).Count(&rows)
	assert.Zero(t, rows)
}

func TestCartController_Rejections(t *testing.T) {
	f := setupCartControllerTest(t)

	tests := []struct {
		name           string
		method         string
		path           string
		body           interface{}
		expectedStatus int
		expectedCode   string
	}{
		{
			name:           "Missing product id",
			method:         http.MethodPost,
			path:           "/cart",
			body:           gin.H{"quantity": 1},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "VALIDATION_INVALID_INPUT",
		},
		{
			name:           "Unknown product",
			method:         http.MethodPost,
			path:           "/cart",
			body:           gin.H{"product_id": "prod-404", "quantity": 1},
			expectedStatus: http.StatusNotFound,
			expectedCode:   "PRODUCT_NOT_FOUND",
		},
		{
			name:           "Not for sale",
			method:         http.MethodPost,
			path:           "/cart",
			body:           gin.H{"product_id": "private", "quantity": 1},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "CART_PRODUCT_NOT_PURCHASABLE",
		},
		{
			name:           "Negative quantity",
			method:         http.MethodPost,
			path:           "/cart",
			body:           gin.H{"product_id": "prod-1", "quantity": -2},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "CART_INVALID_QUANTITY",
		},
		{
			name:           "Over the limit",
			method:         http.MethodPost,
			path:           "/cart",
			body:           gin.H{"product_id": "prod-1", "quantity": 11},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "CART_INVALID_QUANTITY",
		},
		{
			name:           "Update product not in cart",
			method:         http.MethodPut,
			path:           "/cart/prod-2",
			body:           gin.H{"quantity": 2},
			expectedStatus: http.StatusNotFound,
			expectedCode:   "CART_ITEM_NOT_FOUND",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, resp := f.do(t, tt.method, tt.path, tt.body)

			assert.Equal(t, tt.expectedStatus, code)
			assert.Equal(t, tt.expectedCode, resp.Error)
			assert.Empty(t, resp.Cart.Items)
		})
	}
}

func TestCartController_RowRemovedElsewhere(t *testing.T) {
	f := setupCartControllerTest(t)
	f.seed(t, "prod-1", 1)

	_, resp := f.do(t, http.MethodGet, "/cart", nil)
	require.Len(t, resp.Cart.Items, 1)

	// another device cleared the cart
	require.NoError(t, f.db.Where("user_id = ?", f.user.ID).Delete(&model.CartItem{}).Error)

	code, resp := f.do(t, http.MethodPut, "/cart/prod-1", gin.H{"quantity": 3})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "CART_OUT_OF_SYNC", resp.Error)

	code, resp = f.do(t, http.MethodPost, "/cart/reload", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Empty(t, resp.Cart.Items)
}

// stubCartService fails every call with err
type stubCartService struct {
	err error
}

func (s stubCartService) GetCart(ctx context.Context, userID uint) (cart.Snapshot, error) {
	return cart.Snapshot{Identity: cart.Identity(userID)}, s.err
}

func (s stubCartService) Reload(ctx context.Context, userID uint) (cart.Snapshot, error) {
	return cart.Snapshot{}, s.err
}

func (s stubCartService) AddToCart(ctx context.Context, userID uint, productID string, quantity int) (cart.Snapshot, error) {
	return cart.Snapshot{}, s.err
}

func (s stubCartService) UpdateQuantity(ctx context.Context, userID uint, productID string, quantity int) (cart.Snapshot, error) {
	return cart.Snapshot{}, s.err
}

func (s stubCartService) RemoveFromCart(ctx context.Context, userID uint, productID string) (cart.Snapshot, error) {
	return cart.Snapshot{}, s.err
}

func (s stubCartService) ClearCart(ctx context.Context, userID uint) (cart.Snapshot, error) {
	return cart.Snapshot{}, s.err
}

func TestCartController_LoadFailureStillAnswers(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctrl := NewCartController(stubCartService{
		err: &cart.Error{Kind: cart.KindRemoteFailure, Op: "load", Err: fmt.Errorf("connection refused")},
	})
	router := gin.New()
	router.GET("/cart", func(c *gin.Context) {
		setUserIDInContext(c, 1)
		ctrl.GetCart(c)
	})
	router.DELETE("/cart", func(c *gin.Context) {
		setUserIDInContext(c, 1)
		ctrl.ClearCart(c)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/cart", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	var resp cartResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.LoadError)
	assert.Empty(t, resp.Cart.Items)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/cart", nil))
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "INTERNAL_DATABASE_ERROR")
}

func TestCartController_Unauthenticated(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctrl := NewCartController(stubCartService{})
	router := gin.New()
	router.GET("/cart", ctrl.GetCart)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/cart", nil))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "AUTH_UNAUTHORIZED")
}

func TestCartErrorStatus(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{&cart.Error{Kind: cart.KindValidation, Err: cart.ErrMissingProductID}, http.StatusBadRequest, "VALIDATION_INVALID_INPUT"},
		{&cart.Error{Kind: cart.KindValidation, Err: cart.ErrMissingIdentity}, http.StatusUnauthorized, "AUTH_UNAUTHORIZED"},
		{&cart.Error{Kind: cart.KindConsistency, Err: cart.ErrRowNotFound}, http.StatusConflict, "CART_OUT_OF_SYNC"},
		{&cart.Error{Kind: cart.KindRemoteFailure, Err: fmt.Errorf("timeout")}, http.StatusBadGateway, "INTERNAL_DATABASE_ERROR"},
		{fmt.Errorf("unexpected"), http.StatusInternalServerError, "INTERNAL_SERVER_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			status, code, message := cartErrorStatus(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, code)
			assert.NotEmpty(t, message)
		})
	}
}
