// internal/i18n/keys.go
package i18n

// Translation keys constants
const (
	// Common
	KeySuccess       = "success"
	KeyInternalError = "error.internal"
	KeyConflict      = "error.conflict"
	KeyRateLimited   = "error.rate_limited"

	// Authentication
	KeyAuthRequired           = "auth.required"
	KeyAuthInvalidToken       = "auth.invalid_token"
	KeyAuthInvalidCredentials = "auth.invalid_credentials"
	KeyAuthUserExists         = "auth.user_exists"
	KeyAuthLoginSuccess       = "auth.login_success"
	KeyAuthRegisterSuccess    = "auth.register_success"
	KeyAuthCustomerOnly       = "auth.customer_only"
	KeyAuthPasswordMismatch   = "auth.password_mismatch"

	// Admin
	KeyAdminAccessDenied = "admin.access_denied"

	// Customers
	KeyCustomerNotFound   = "customer.not_found"
	KeyCustomerEmailTaken = "customer.email_taken"
	KeyCustomerPhoneTaken = "customer.phone_taken"
	KeyCustomerInvalidDOB = "customer.invalid_dob"

	KeyUserNotFound = "user.not_found"

	// Products
	KeyProductNotFound        = "product.not_found"
	KeyProductSlugTaken       = "product.slug_taken"
	KeyProductOldPrice        = "product.old_price_lt_price"
	KeyProductUnknownImage    = "product.unknown_image"
	KeyProductUnknownCategory = "product.unknown_category"
	KeyProductDuplicateImage  = "product.duplicate_image"

	// Categories
	KeyCategoryNotFound  = "category.not_found"
	KeyCategorySlugTaken = "category.slug_taken"

	// Orders
	KeyOrderNotFound             = "order.not_found"
	KeyOrderCartEmpty            = "order.cart_empty"
	KeyOrderProductInvalid       = "order.product_invalid"
	KeyOrderProductUnavailable   = "order.product_unavailable"
	KeyOrderInsufficientQuantity = "order.insufficient_quantity"
	KeyOrderQuantityMin          = "order.quantity_min"
	KeyOrderQuantityMax          = "order.quantity_max"
	KeyOrderStatusTransition     = "order.status_transition"
	KeyOrderCustomerInvalid      = "order.customer_invalid"

	// Attachments & media
	KeyAttachmentNotFound = "attachment.not_found"
	KeyMediaNotFound      = "media.not_found"
	KeyFileRequired       = "file.required"
	KeyFileInvalidType    = "file.invalid_type"
	KeyFileTooLarge       = "file.too_large"
	KeyFileUploadFailed   = "file.upload_failed"

	// Validation
	KeyValidationInvalid = "validation.invalid"

	// Notifications
	KeyNotifyOrderCreatedTitle   = "notification.order_created.title"
	KeyNotifyOrderCreatedMessage = "notification.order_created.message"
	KeyNotifyOrderShippedTitle   = "notification.order_shipped.title"
	KeyNotifyOrderShippedMessage = "notification.order_shipped.message"
)
