package customers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"lamf-backend/internal/domain"
	"lamf-backend/internal/pkg/validation"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const aadhaarHashCost = 10

var (
	ErrCustomerNotFound = errors.New("Customer not found")
	ErrInvalidCustomer  = errors.New("Invalid customer details")
	ErrDuplicatePAN     = errors.New("A customer with this PAN already exists")
	ErrDuplicateEmail   = errors.New("A customer with this email already exists")
	ErrAadhaarMismatch  = errors.New("Aadhaar number does not match our records")
)

type Service struct {
	DB *gorm.DB
}

type CustomerInput struct {
	PAN               string  `json:"pan"`
	FullName          string  `json:"full_name"`
	Email             string  `json:"email"`
	Phone             string  `json:"phone"`
	Aadhaar           string  `json:"aadhaar"`
	Address           *string `json:"address"`
	BankAccountNumber *string `json:"bank_account_number"`
	BankIFSC          *string `json:"bank_ifsc"`
	BankName          *string `json:"bank_name"`
}

// Normalize trims fields and upper-cases identifiers.
func (in *CustomerInput) Normalize() {
	in.PAN = validation.Upper(in.PAN)
	in.FullName = strings.TrimSpace(in.FullName)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Phone = strings.TrimSpace(in.Phone)
	in.Aadhaar = validation.NormalizeAadhaar(in.Aadhaar)
	if in.BankIFSC != nil {
		ifsc := validation.Upper(*in.BankIFSC)
		in.BankIFSC = &ifsc
	}
}

// Validate expects a normalized input.
func (in *CustomerInput) Validate() error {
	switch {
	case !validation.IsValidPAN(in.PAN):
		return fmt.Errorf("%w: PAN must look like ABCDE1234F", ErrInvalidCustomer)
	case !validation.IsValidFullname(in.FullName):
		return fmt.Errorf("%w: full name is required", ErrInvalidCustomer)
	case !validation.IsValidEmail(in.Email):
		return fmt.Errorf("%w: email is invalid", ErrInvalidCustomer)
	case !validation.IsValidMobile(in.Phone):
		return fmt.Errorf("%w: phone must be a 10 digit mobile number", ErrInvalidCustomer)
	case in.Aadhaar != "" && !validation.IsValidAadhaar(in.Aadhaar):
		return fmt.Errorf("%w: Aadhaar must be 12 digits", ErrInvalidCustomer)
	case in.BankIFSC != nil && *in.BankIFSC != "" && !validation.IsValidIFSC(*in.BankIFSC):
		return fmt.Errorf("%w: IFSC is invalid", ErrInvalidCustomer)
	}
	return nil
}

func (s *Service) List(ctx context.Context) ([]domain.Customer, error) {
	var customers []domain.Customer
	if err := s.DB.WithContext(ctx).Order("created_at DESC").Find(&customers).Error; err != nil {
		return nil, fmt.Errorf("Failed to fetch customers: %v", err)
	}
	return customers, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
	var c domain.Customer
	if err := s.DB.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCustomerNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (s *Service) Create(ctx context.Context, in CustomerInput) (*domain.Customer, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}
	var out *domain.Customer
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&domain.Customer{}).Where("pan = ?", in.PAN).Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return ErrDuplicatePAN
		}
		c, err := insert(tx, in)
		out = c
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// FindOrCreate returns the customer holding in.PAN, creating it when absent.
// An existing record is returned as stored; intake never overwrites KYC data.
// It runs on the caller's transaction.
func FindOrCreate(tx *gorm.DB, in CustomerInput) (*domain.Customer, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}
	var c domain.Customer
	err := tx.Where("pan = ?", in.PAN).First(&c).Error
	if err == nil {
		return &c, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	return insert(tx, in)
}

func insert(tx *gorm.DB, in CustomerInput) (*domain.Customer, error) {
	var taken int64
	if err := tx.Model(&domain.Customer{}).Where("email = ?", in.Email).Count(&taken).Error; err != nil {
		return nil, err
	}
	if taken > 0 {
		return nil, ErrDuplicateEmail
	}
	c := &domain.Customer{
		PAN:               in.PAN,
		FullName:          in.FullName,
		Email:             in.Email,
		Phone:             in.Phone,
		Address:           in.Address,
		BankAccountNumber: in.BankAccountNumber,
		BankIFSC:          in.BankIFSC,
		BankName:          in.BankName,
	}
	if in.Aadhaar != "" {
		if err := setAadhaar(c, in.Aadhaar); err != nil {
			return nil, err
		}
	}
	if err := tx.Create(c).Error; err != nil {
		return nil, fmt.Errorf("Failed to create customer: %v", err)
	}
	return c, nil
}

func setAadhaar(c *domain.Customer, aadhaar string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(aadhaar), aadhaarHashCost)
	if err != nil {
		return err
	}
	h := string(hash)
	last4 := aadhaar[len(aadhaar)-4:]
	c.AadhaarHash = &h
	c.AadhaarLast4 = &last4
	return nil
}

// VerifyKYC marks the customer verified. When an Aadhaar digest is on file the
// supplied number must match it; otherwise a supplied number is recorded.
func (s *Service) VerifyKYC(ctx context.Context, id uuid.UUID, aadhaar string) (*domain.Customer, error) {
	aadhaar = validation.NormalizeAadhaar(aadhaar)
	var out *domain.Customer
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var c domain.Customer
		if err := tx.Where("id = ?", id).First(&c).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCustomerNotFound
			}
			return err
		}
		if c.AadhaarHash != nil {
			if bcrypt.CompareHashAndPassword([]byte(*c.AadhaarHash), []byte(aadhaar)) != nil {
				return ErrAadhaarMismatch
			}
		} else if aadhaar != "" {
			if !validation.IsValidAadhaar(aadhaar) {
				return fmt.Errorf("%w: Aadhaar must be 12 digits", ErrInvalidCustomer)
			}
			if err := setAadhaar(&c, aadhaar); err != nil {
				return err
			}
		}
		c.KYCVerified = true
		if err := tx.Save(&c).Error; err != nil {
			return fmt.Errorf("Failed to verify customer: %v", err)
		}
		out = &c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
