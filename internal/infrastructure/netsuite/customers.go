package netsuite

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/erp/ordersync/internal/domain/integration"
)

const (
	customerRecordPath = "/services/rest/record/v1/customer"
	customerColumns    = "c.id, c.entityid, c.companyname, c.firstname, c.lastname, c.email, c.phone, c.isperson"
	maxProbeResults    = 25
)

// API is the transport a directory, catalog or gateway needs
type API interface {
	Querier
	Executor
}

// Directory implements integration.CustomerDirectory over SuiteQL and the record API.
// Every search is an exact match on escaped literals.
type Directory struct {
	api          API
	subsidiaryID string
	logger       *zap.Logger
}

// NewDirectory creates a customer directory
func NewDirectory(api API, subsidiaryID string, logger *zap.Logger) *Directory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Directory{api: api, subsidiaryID: subsidiaryID, logger: logger}
}

// FindStoreCustomerByEmail finds an active company customer with exactly this email
func (d *Directory) FindStoreCustomerByEmail(ctx context.Context, email string) (*integration.CustomerRecord, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, nil
	}
	q := "SELECT " + customerColumns + " FROM customer c WHERE c.isperson = 'F' AND c.isinactive = 'F'" +
		" AND LOWER(c.email) = LOWER(" + Quote(email) + ") ORDER BY c.id"
	return d.first(ctx, q)
}

// FindParentCompany finds an active company customer matching email or phone
func (d *Directory) FindParentCompany(ctx context.Context, email, phone string) (*integration.CustomerRecord, error) {
	var conds []string
	if e := strings.TrimSpace(email); e != "" {
		conds = append(conds, "LOWER(c.email) = LOWER("+Quote(e)+")")
	}
	if p := strings.TrimSpace(phone); p != "" {
		conds = append(conds, "c.phone = "+Quote(p))
	}
	if len(conds) == 0 {
		return nil, nil
	}
	q := "SELECT " + customerColumns + " FROM customer c WHERE c.isperson = 'F' AND c.isinactive = 'F'" +
		" AND (" + strings.Join(conds, " OR ") + ") ORDER BY c.id"
	return d.first(ctx, q)
}

// FindByExternalID finds a customer by external id
func (d *Directory) FindByExternalID(ctx context.Context, externalID string) (*integration.CustomerRecord, error) {
	if externalID == "" {
		return nil, nil
	}
	q := "SELECT " + customerColumns + " FROM customer c WHERE c.externalid = " + Quote(externalID)
	return d.first(ctx, q)
}

// CompanyNameExists reports whether a company customer already uses name
func (d *Directory) CompanyNameExists(ctx context.Context, name string) (bool, error) {
	name = normalizeText(name)
	if name == "" {
		return false, nil
	}
	q := "SELECT c.id FROM customer c WHERE c.isperson = 'F' AND (c.companyname = " + Quote(name) +
		" OR c.entityid = " + Quote(name) + ")"
	rows, err := d.api.RunQuery(ctx, q)
	if err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}

// CreateCustomer creates a customer record and returns its internal id
func (d *Directory) CreateCustomer(ctx context.Context, c integration.CustomerCandidate) (string, error) {
	body := customerRecord{
		ExternalID:  c.ExternalID,
		IsPerson:    c.IsPerson,
		FirstName:   normalizeText(c.FirstName),
		LastName:    normalizeText(c.LastName),
		CompanyName: normalizeText(c.CompanyName),
		Email:       strings.TrimSpace(c.Email),
		Phone:       strings.TrimSpace(c.Phone),
	}
	if c.ParentCompanyID != "" {
		body.Parent = &recordRef{ID: c.ParentCompanyID}
	}
	if d.subsidiaryID != "" {
		body.Subsidiary = &recordRef{ID: d.subsidiaryID}
	}

	resp, err := d.api.Execute(ctx, http.MethodPost, customerRecordPath, nil, body)
	if err != nil {
		if errors.Is(err, ErrDuplicateRecord) {
			return "", integration.NewValidationError(err.Error(), "entityId")
		}
		return "", fmt.Errorf("netsuite: create customer %q: %w", c.DisplayName(), err)
	}

	id := recordIDFromLocation(resp.Header.Get("Location"))
	if id == "" {
		return "", fmt.Errorf("%w: customer created without Location header", integration.ErrTransport)
	}
	d.logger.Info("Created ERP customer",
		zap.String("customer_id", id),
		zap.String("name", c.DisplayName()),
		zap.Bool("is_person", c.IsPerson),
	)
	return id, nil
}

// ProbeCustomers runs a LIKE search over names and emails. It is a diagnostic aid
// for operators and never drives a matching decision.
func (d *Directory) ProbeCustomers(ctx context.Context, fragment string) ([]integration.CustomerRecord, error) {
	fragment = normalizeText(fragment)
	if fragment == "" {
		return nil, nil
	}
	pattern := Quote("%" + strings.ToLower(fragment) + "%")
	q := "SELECT " + customerColumns + " FROM customer c WHERE LOWER(c.companyname) LIKE " + pattern +
		" OR LOWER(c.email) LIKE " + pattern +
		" OR LOWER(c.entityid) LIKE " + pattern + " ORDER BY c.id"
	rows, err := d.api.RunQuery(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(rows) > maxProbeResults {
		rows = rows[:maxProbeResults]
	}
	out := make([]integration.CustomerRecord, len(rows))
	for i, row := range rows {
		out[i] = customerFromRow(row)
	}
	return out, nil
}

func (d *Directory) first(ctx context.Context, q string) (*integration.CustomerRecord, error) {
	rows, err := d.api.RunQuery(ctx, q)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	if len(rows) > 1 {
		d.logger.Debug("Customer search matched several records; using lowest id",
			zap.Int("matches", len(rows)),
		)
	}
	rec := customerFromRow(rows[0])
	return &rec, nil
}

func customerFromRow(row Row) integration.CustomerRecord {
	return integration.CustomerRecord{
		ID:          row.String("id"),
		EntityID:    row.String("entityid"),
		CompanyName: row.String("companyname"),
		FirstName:   row.String("firstname"),
		LastName:    row.String("lastname"),
		Email:       row.String("email"),
		Phone:       row.String("phone"),
		IsPerson:    row.Bool("isperson"),
	}
}

var _ integration.CustomerDirectory = (*Directory)(nil)
