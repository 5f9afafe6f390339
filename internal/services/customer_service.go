package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/javajoker/storefront-backend/internal/apperrors"
	"github.com/javajoker/storefront-backend/internal/i18n"
	"github.com/javajoker/storefront-backend/internal/models"
	"github.com/javajoker/storefront-backend/internal/utils"
)

const dateLayout = "2006-01-02"

// CustomerService is the admin view over users with the customer role.
type CustomerService struct {
	db *gorm.DB
}

type StoreCustomerRequest struct {
	Name   string `json:"name" validate:"required,max=255"`
	Email  string `json:"email" validate:"required,email,max=255"`
	Phone  string `json:"phone" validate:"required,numeric_string,max=32"`
	Gender string `json:"gender" validate:"required,oneof=male female"`
	DOB    string `json:"dob" validate:"required,datetime=2006-01-02"`
}

type UpdateCustomerRequest struct {
	Name   *string `json:"name" validate:"omitempty,max=255"`
	Email  *string `json:"email" validate:"omitempty,email,max=255"`
	Phone  *string `json:"phone" validate:"omitempty,numeric_string,max=32"`
	Gender *string `json:"gender" validate:"omitempty,oneof=male female"`
	DOB    *string `json:"dob" validate:"omitempty,datetime=2006-01-02"`
}

var customerSortFields = []string{"created_at", "name", "email"}

func NewCustomerService(db *gorm.DB) *CustomerService {
	return &CustomerService{db: db}
}

func (s *CustomerService) customers(ctx context.Context, withTrashed bool) *gorm.DB {
	query := s.db.WithContext(ctx).Model(&models.User{})
	if withTrashed {
		query = query.Unscoped()
	}
	return query.Where("role = ?", models.UserRoleCustomer)
}

func (s *CustomerService) ListCustomers(ctx context.Context, params utils.PaginationParams) ([]models.User, int64, error) {
	query := s.customers(ctx, params.WithTrashed)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count customers: %w", err)
	}

	var customers []models.User
	query = utils.ApplyPagination(utils.ApplySort(query, params, customerSortFields), params)
	if err := query.Preload("Orders", func(db *gorm.DB) *gorm.DB { return db.Order("created_at DESC") }).
		Find(&customers).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list customers: %w", err)
	}
	return customers, total, nil
}

func (s *CustomerService) GetCustomer(ctx context.Context, id uint, withTrashed bool) (*models.User, error) {
	var customer models.User
	err := s.customers(ctx, withTrashed).
		Preload("Orders", func(db *gorm.DB) *gorm.DB { return db.Order("created_at DESC") }).
		First(&customer, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load customer: %w", err)
	}
	return &customer, nil
}

// CreateCustomer registers a customer on their behalf with a random password.
func (s *CustomerService) CreateCustomer(ctx context.Context, req *StoreCustomerRequest) (*models.User, error) {
	req.Email = models.NormalizeEmail(req.Email)
	req.Phone = strings.TrimSpace(req.Phone)
	if verr := utils.Validate(req); verr != nil {
		return nil, verr
	}

	dob, err := time.Parse(dateLayout, req.DOB)
	if err != nil {
		return nil, apperrors.FieldError("dob", i18n.TC(ctx, i18n.KeyCustomerInvalidDOB))
	}

	email := req.Email
	phone := req.Phone
	if err := s.checkUnique(ctx, email, &phone, 0); err != nil {
		return nil, err
	}

	password, err := utils.GeneratePassword()
	if err != nil {
		return nil, fmt.Errorf("failed to generate password: %w", err)
	}

	gender := models.Gender(req.Gender)
	customer := &models.User{
		Name:        req.Name,
		Email:       email,
		Phone:       &phone,
		Gender:      &gender,
		DateOfBirth: &dob,
		Role:        models.UserRoleCustomer,
	}
	if err := customer.SetPassword(password); err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	if err := s.db.WithContext(ctx).Create(customer).Error; err != nil {
		return nil, s.translateWriteError(ctx, err)
	}
	return customer, nil
}

func (s *CustomerService) UpdateCustomer(ctx context.Context, id uint, req *UpdateCustomerRequest) (*models.User, error) {
	if req.Email != nil {
		email := models.NormalizeEmail(*req.Email)
		req.Email = &email
	}
	if req.Phone != nil {
		phone := strings.TrimSpace(*req.Phone)
		req.Phone = &phone
	}
	if verr := utils.Validate(req); verr != nil {
		return nil, verr
	}

	customer, err := s.GetCustomer(ctx, id, false)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	email := customer.Email
	if req.Name != nil {
		updates["name"] = *req.Name
	}
	if req.Email != nil {
		email = *req.Email
		updates["email"] = email
	}
	var phone *string
	if req.Phone != nil {
		phone = req.Phone
		updates["phone"] = *req.Phone
	}
	if req.Gender != nil {
		updates["gender"] = *req.Gender
	}
	if req.DOB != nil {
		dob, err := time.Parse(dateLayout, *req.DOB)
		if err != nil {
			return nil, apperrors.FieldError("dob", i18n.TC(ctx, i18n.KeyCustomerInvalidDOB))
		}
		updates["dob"] = dob
	}

	if err := s.checkUnique(ctx, email, phone, customer.ID); err != nil {
		return nil, err
	}

	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", customer.ID).Updates(updates).Error; err != nil {
			return nil, s.translateWriteError(ctx, err)
		}
	}
	return s.GetCustomer(ctx, id, false)
}

func (s *CustomerService) DeleteCustomer(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Where("role = ?", models.UserRoleCustomer).Delete(&models.User{}, id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete customer: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (s *CustomerService) RestoreCustomer(ctx context.Context, id uint) (*models.User, error) {
	if _, err := s.GetCustomer(ctx, id, true); err != nil {
		return nil, err
	}
	if err := restoreRow(ctx, s.db, &models.User{}, id); err != nil {
		return nil, err
	}
	return s.GetCustomer(ctx, id, false)
}

// checkUnique reports an email or phone already used by another user,
// trashed users included. It returns a *apperrors.ValidationError for taken
// values and a persistence error when the lookup fails.
func (s *CustomerService) checkUnique(ctx context.Context, email string, phone *string, exceptID uint) error {
	verr := apperrors.NewValidationError()

	var count int64
	err := s.db.WithContext(ctx).Unscoped().Model(&models.User{}).
		Where("email = ? AND id <> ?", email, exceptID).Count(&count).Error
	if err != nil {
		return persistence("check email", err)
	}
	if count > 0 {
		verr.Add("email", i18n.TC(ctx, i18n.KeyCustomerEmailTaken))
	}

	if phone != nil {
		count = 0
		err := s.db.WithContext(ctx).Unscoped().Model(&models.User{}).
			Where("phone = ? AND id <> ?", *phone, exceptID).Count(&count).Error
		if err != nil {
			return persistence("check phone", err)
		}
		if count > 0 {
			verr.Add("phone", i18n.TC(ctx, i18n.KeyCustomerPhoneTaken))
		}
	}

	if verr.HasErrors() {
		return verr
	}
	return nil
}

func (s *CustomerService) translateWriteError(ctx context.Context, err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperrors.FieldError("email", i18n.TC(ctx, i18n.KeyCustomerEmailTaken))
	}
	return fmt.Errorf("failed to save customer: %w", err)
}
