package netsuite

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erp/ordersync/internal/domain/integration"
)

func TestDirectory_FindStoreCustomerByEmail(t *testing.T) {
	api := &stubAPI{runQuery: func(q string) ([]Row, error) {
		return []Row{
			{"id": "10", "companyname": "Acme", "email": "buyer@acme.com", "isperson": "F"},
			{"id": "11", "companyname": "Acme 2", "email": "buyer@acme.com", "isperson": "F"},
		}, nil
	}}
	dir := NewDirectory(api, "", nil)

	rec, err := dir.FindStoreCustomerByEmail(context.Background(), " buyer@acme.com ")
	require.NoError(t, err)
	require.NotNil(t, rec)

	assert.Equal(t, "10", rec.ID)
	assert.False(t, rec.IsPerson)
	require.Len(t, api.queries, 1)
	assert.Contains(t, api.queries[0], "c.isperson = 'F'")
	assert.Contains(t, api.queries[0], "LOWER(c.email) = LOWER('buyer@acme.com')")
	assert.NotContains(t, api.queries[0], "LIKE")
}

func TestDirectory_EscapesLiterals(t *testing.T) {
	api := &stubAPI{}
	dir := NewDirectory(api, "", nil)

	rec, err := dir.FindStoreCustomerByEmail(context.Background(), "o'brien@x.com")
	require.NoError(t, err)
	assert.Nil(t, rec)

	exists, err := dir.CompanyNameExists(context.Background(), "O'Brien's Garage")
	require.NoError(t, err)
	assert.False(t, exists)

	require.Len(t, api.queries, 2)
	assert.Contains(t, api.queries[0], "'o''brien@x.com'")
	assert.Contains(t, api.queries[1], "c.companyname = 'O''Brien''s Garage'")
}

func TestDirectory_FindParentCompany(t *testing.T) {
	tests := []struct {
		name      string
		email     string
		phone     string
		wantQuery []string
		wantCalls int
	}{
		{"email and phone", "a@b.com", "555-1234", []string{"LOWER(c.email) = LOWER('a@b.com') OR c.phone = '555-1234'"}, 1},
		{"phone only", "", "555-1234", []string{"(c.phone = '555-1234')"}, 1},
		{"nothing to search", " ", "", nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &stubAPI{runQuery: func(q string) ([]Row, error) {
				return []Row{{"id": "500", "isperson": "F"}}, nil
			}}
			dir := NewDirectory(api, "", nil)

			rec, err := dir.FindParentCompany(context.Background(), tt.email, tt.phone)
			require.NoError(t, err)
			require.Len(t, api.queries, tt.wantCalls)
			if tt.wantCalls == 0 {
				assert.Nil(t, rec)
				return
			}
			assert.Equal(t, "500", rec.ID)
			for _, frag := range tt.wantQuery {
				assert.Contains(t, api.queries[0], frag)
			}
		})
	}
}

func TestDirectory_FindByExternalID(t *testing.T) {
	api := &stubAPI{runQuery: func(q string) ([]Row, error) {
		if strings.Contains(q, "c.externalid = 'SHOP_CUST_1001'") {
			return []Row{{"id": "321", "isperson": "T"}}, nil
		}
		return nil, nil
	}}
	dir := NewDirectory(api, "", nil)

	rec, err := dir.FindByExternalID(context.Background(), "SHOP_CUST_1001")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "321", rec.ID)
	assert.True(t, rec.IsPerson)

	rec, err = dir.FindByExternalID(context.Background(), "")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestDirectory_SearchErrorPropagates(t *testing.T) {
	api := &stubAPI{runQuery: func(q string) ([]Row, error) {
		return nil, fmt.Errorf("%w: timeout", integration.ErrTransport)
	}}
	dir := NewDirectory(api, "", nil)

	_, err := dir.FindStoreCustomerByEmail(context.Background(), "a@b.com")
	assert.ErrorIs(t, err, integration.ErrTransport)
}

func TestDirectory_CreateCustomer(t *testing.T) {
	api := &stubAPI{execute: func(method, path string, body any) (*Response, error) {
		return locationResponse("https://x/services/rest/record/v1/customer/777"), nil
	}}
	dir := NewDirectory(api, "3", nil)

	id, err := dir.CreateCustomer(context.Background(), integration.CustomerCandidate{
		IsPerson:        true,
		FirstName:       " José ",
		LastName:        "Diaz INV1001",
		ParentCompanyID: "500",
		ExternalID:      "SHOP_CUST_1001",
	})
	require.NoError(t, err)
	assert.Equal(t, "777", id)

	require.Len(t, api.executed, 1)
	call := api.executed[0]
	assert.Equal(t, "POST", call.Method)
	assert.Equal(t, customerRecordPath, call.Path)

	body, ok := call.Body.(customerRecord)
	require.True(t, ok)
	assert.True(t, body.IsPerson)
	assert.Equal(t, "José", body.FirstName, "names are NFC-normalized")
	assert.Equal(t, "SHOP_CUST_1001", body.ExternalID)
	assert.Empty(t, body.Email)
	require.NotNil(t, body.Parent)
	assert.Equal(t, "500", body.Parent.ID)
	require.NotNil(t, body.Subsidiary)
	assert.Equal(t, "3", body.Subsidiary.ID)
}

func TestDirectory_CreateCustomer_Errors(t *testing.T) {
	t.Run("duplicate becomes validation error", func(t *testing.T) {
		api := &stubAPI{execute: func(method, path string, body any) (*Response, error) {
			return nil, fmt.Errorf("%w: name taken (DUP_ENTITY)", ErrDuplicateRecord)
		}}
		_, err := NewDirectory(api, "", nil).CreateCustomer(context.Background(), integration.CustomerCandidate{CompanyName: "Acme"})
		assert.ErrorIs(t, err, integration.ErrValidation)
		assert.False(t, integration.IsRetryable(err))
	})

	t.Run("transport error keeps its class", func(t *testing.T) {
		api := &stubAPI{execute: func(method, path string, body any) (*Response, error) {
			return nil, fmt.Errorf("%w: HTTP 503", integration.ErrTransport)
		}}
		_, err := NewDirectory(api, "", nil).CreateCustomer(context.Background(), integration.CustomerCandidate{CompanyName: "Acme"})
		assert.ErrorIs(t, err, integration.ErrTransport)
	})

	t.Run("missing location", func(t *testing.T) {
		api := &stubAPI{}
		_, err := NewDirectory(api, "", nil).CreateCustomer(context.Background(), integration.CustomerCandidate{CompanyName: "Acme"})
		assert.True(t, errors.Is(err, integration.ErrTransport))
	})
}

func TestDirectory_ProbeCustomers(t *testing.T) {
	rows := make([]Row, 30)
	for i := range rows {
		rows[i] = Row{"id": fmt.Sprint(i + 1), "companyname": "Acme"}
	}
	api := &stubAPI{runQuery: func(q string) ([]Row, error) { return rows, nil }}

	out, err := NewDirectory(api, "", nil).ProbeCustomers(context.Background(), "Ac'me")
	require.NoError(t, err)

	assert.Len(t, out, maxProbeResults)
	assert.Contains(t, api.queries[0], "LIKE '%ac''me%'")
}
