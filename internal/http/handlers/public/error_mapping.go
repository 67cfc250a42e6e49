package public

import (
	"errors"

	"github.com/fenxiao-next/internal/http/response"
	"github.com/fenxiao-next/internal/service"

	"github.com/gin-gonic/gin"
)

// mappedHandlerError 定义业务错误到接口错误响应的映射关系。
type mappedHandlerError struct {
	target error
	code   int
	key    string
}

func respondWithMappedError(c *gin.Context, err error, rules []mappedHandlerError, fallbackCode int, fallbackKey string) {
	for _, rule := range rules {
		if errors.Is(err, rule.target) {
			respondError(c, rule.code, rule.key, nil)
			return
		}
	}
	respondError(c, fallbackCode, fallbackKey, err)
}

var orderCreateErrorRules = []mappedHandlerError{
	{target: service.ErrInvalidInput, code: response.CodeBadRequest, key: "error.order_item_invalid"},
	{target: service.ErrCartEmpty, code: response.CodeBadRequest, key: "error.cart_empty"},
	{target: service.ErrCartQuantityInvalid, code: response.CodeBadRequest, key: "error.cart_quantity_invalid"},
	{target: service.ErrProductNotFound, code: response.CodeBadRequest, key: "error.product_not_found"},
	{target: service.ErrProductInactive, code: response.CodeBadRequest, key: "error.product_inactive"},
	{target: service.ErrStockInsufficient, code: response.CodeBadRequest, key: "error.stock_insufficient"},
	{target: service.ErrUserDisabled, code: response.CodeUnauthorized, key: "error.user_disabled"},
	{target: service.ErrNotFound, code: response.CodeNotFound, key: "error.not_found"},
}

var cartUpsertErrorRules = []mappedHandlerError{
	{target: service.ErrInvalidInput, code: response.CodeBadRequest, key: "error.order_item_invalid"},
	{target: service.ErrCartQuantityInvalid, code: response.CodeBadRequest, key: "error.cart_quantity_invalid"},
	{target: service.ErrProductNotFound, code: response.CodeBadRequest, key: "error.product_not_found"},
	{target: service.ErrStockInsufficient, code: response.CodeBadRequest, key: "error.stock_insufficient"},
}

var sponsorBindErrorRules = []mappedHandlerError{
	{target: service.ErrSponsorCodeInvalid, code: response.CodeBadRequest, key: "error.sponsor_code_invalid"},
	{target: service.ErrSelfRelationship, code: response.CodeBadRequest, key: "error.self_relationship"},
	{target: service.ErrCircularRelationship, code: response.CodeBadRequest, key: "error.circular_relationship"},
	{target: service.ErrRelationshipForbidden, code: response.CodeConflict, key: "error.relationship_forbidden"},
	{target: service.ErrRelationshipExists, code: response.CodeConflict, key: "error.relationship_exists"},
	{target: service.ErrNetworkDisabled, code: response.CodeBadRequest, key: "error.network_disabled"},
	{target: service.ErrNotFound, code: response.CodeNotFound, key: "error.user_not_found"},
}

func respondOrderCreateError(c *gin.Context, err error) {
	respondWithMappedError(c, err, orderCreateErrorRules, response.CodeInternal, "error.order_create_failed")
}

func respondCartUpsertError(c *gin.Context, err error) {
	respondWithMappedError(c, err, cartUpsertErrorRules, response.CodeInternal, "error.order_update_failed")
}

func respondSponsorBindError(c *gin.Context, err error) {
	respondWithMappedError(c, err, sponsorBindErrorRules, response.CodeInternal, "error.sponsor_bind_failed")
}
