package customers

import (
	"context"
	"testing"

	"lamf-backend/internal/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func input() CustomerInput {
	return CustomerInput{
		PAN:      " abcde1234f ",
		FullName: "Priya Patel",
		Email:    "Priya.Patel@Example.com",
		Phone:    "+91 9123456789",
		Aadhaar:  "1234 5678 9012",
	}
}

func TestCreate_NormalizesAndHashesAadhaar(t *testing.T) {
	svc := &Service{DB: testutil.NewDB(t)}
	c, err := svc.Create(context.Background(), input())
	require.NoError(t, err)

	assert.Equal(t, "ABCDE1234F", c.PAN)
	assert.Equal(t, "priya.patel@example.com", c.Email)
	require.NotNil(t, c.AadhaarHash)
	assert.NotContains(t, *c.AadhaarHash, "123456789012")
	require.NotNil(t, c.AadhaarLast4)
	assert.Equal(t, "9012", *c.AadhaarLast4)
	assert.False(t, c.KYCVerified)
}

func TestCreate_Validation(t *testing.T) {
	svc := &Service{DB: testutil.NewDB(t)}
	badIFSC := "HDFC123"
	cases := map[string]func(*CustomerInput){
		"pan":     func(in *CustomerInput) { in.PAN = "ABCD1234F" },
		"name":    func(in *CustomerInput) { in.FullName = "" },
		"email":   func(in *CustomerInput) { in.Email = "nope" },
		"phone":   func(in *CustomerInput) { in.Phone = "12345" },
		"aadhaar": func(in *CustomerInput) { in.Aadhaar = "1234" },
		"ifsc":    func(in *CustomerInput) { in.BankIFSC = &badIFSC },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := input()
			mutate(&in)
			_, err := svc.Create(context.Background(), in)
			assert.ErrorIs(t, err, ErrInvalidCustomer)
		})
	}
}

func TestCreate_Duplicates(t *testing.T) {
	svc := &Service{DB: testutil.NewDB(t)}
	ctx := context.Background()
	_, err := svc.Create(ctx, input())
	require.NoError(t, err)

	_, err = svc.Create(ctx, input())
	assert.ErrorIs(t, err, ErrDuplicatePAN)

	other := input()
	other.PAN = "FGHIJ5678K"
	_, err = svc.Create(ctx, other)
	assert.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestFindOrCreate_ReusesByPAN(t *testing.T) {
	db := testutil.NewDB(t)
	first, err := FindOrCreate(db, input())
	require.NoError(t, err)

	again := input()
	again.FullName = "Someone Else"
	second, err := FindOrCreate(db, again)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Priya Patel", second.FullName)
}

func TestGetAndList(t *testing.T) {
	svc := &Service{DB: testutil.NewDB(t)}
	ctx := context.Background()
	c, err := svc.Create(ctx, input())
	require.NoError(t, err)

	got, err := svc.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.PAN, got.PAN)

	_, err = svc.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrCustomerNotFound)

	all, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestVerifyKYC(t *testing.T) {
	svc := &Service{DB: testutil.NewDB(t)}
	ctx := context.Background()
	c, err := svc.Create(ctx, input())
	require.NoError(t, err)

	_, err = svc.VerifyKYC(ctx, c.ID, "111122223333")
	assert.ErrorIs(t, err, ErrAadhaarMismatch)

	v, err := svc.VerifyKYC(ctx, c.ID, "1234 5678 9012")
	require.NoError(t, err)
	assert.True(t, v.KYCVerified)

	_, err = svc.VerifyKYC(ctx, uuid.New(), "")
	assert.ErrorIs(t, err, ErrCustomerNotFound)
}

func TestVerifyKYC_RecordsAadhaarWhenMissing(t *testing.T) {
	svc := &Service{DB: testutil.NewDB(t)}
	ctx := context.Background()
	in := input()
	in.Aadhaar = ""
	c, err := svc.Create(ctx, in)
	require.NoError(t, err)
	assert.Nil(t, c.AadhaarHash)

	v, err := svc.VerifyKYC(ctx, c.ID, "999988887777")
	require.NoError(t, err)
	require.NotNil(t, v.AadhaarLast4)
	assert.Equal(t, "7777", *v.AadhaarLast4)
	assert.True(t, v.KYCVerified)
}
