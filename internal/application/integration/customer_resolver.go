package integration

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/erp/ordersync/internal/domain/integration"
)

var validate = validator.New()

// CustomerPolicy holds the business rules that drive customer resolution
type CustomerPolicy struct {
	// SourcePrefix is the external id prefix of the storefront, e.g. "SHOP"
	SourcePrefix string
	// ContactEmailQuestionIndex is the checkout question whose answer carries
	// the buyer's account email
	ContactEmailQuestionIndex int
	// DropshipPaymentMethods are matched case-insensitively as substrings of the
	// order's payment method
	DropshipPaymentMethods []string
}

// DefaultCustomerPolicy returns the default policy for a source prefix
func DefaultCustomerPolicy(sourcePrefix string) CustomerPolicy {
	return CustomerPolicy{
		SourcePrefix:              sourcePrefix,
		ContactEmailQuestionIndex: 0,
		DropshipPaymentMethods:    []string{"dropship"},
	}
}

// IsDropship reports whether a payment method marks a dropship order
func (p CustomerPolicy) IsDropship(paymentMethod string) bool {
	pm := strings.ToLower(strings.TrimSpace(paymentMethod))
	if pm == "" {
		return false
	}
	for _, m := range p.DropshipPaymentMethods {
		m = strings.ToLower(strings.TrimSpace(m))
		if m != "" && strings.Contains(pm, m) {
			return true
		}
	}
	return false
}

// AlternateEmail returns the contact email from the order's question answers,
// or "" when absent or malformed
func (p CustomerPolicy) AlternateEmail(order *integration.SourceOrder) string {
	answer := order.QuestionAnswer(p.ContactEmailQuestionIndex)
	if answer == "" {
		return ""
	}
	if err := validate.Var(answer, "email"); err != nil {
		return ""
	}
	return answer
}

// CustomerResolver maps a source order to an ERP customer, creating it when needed.
//
// Dropship orders always resolve to a person with a blank email. All other orders
// resolve to a company: an existing store customer found by the contact email is
// reused verbatim, otherwise a new company is created.
type CustomerResolver struct {
	directory integration.CustomerDirectory
	policy    CustomerPolicy
	logger    *zap.Logger
}

// NewCustomerResolver creates a new customer resolver
func NewCustomerResolver(directory integration.CustomerDirectory, policy CustomerPolicy, logger *zap.Logger) *CustomerResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CustomerResolver{
		directory: directory,
		policy:    policy,
		logger:    logger,
	}
}

// Policy returns the resolver's policy
func (r *CustomerResolver) Policy() CustomerPolicy {
	return r.policy
}

// Resolve returns the ERP customer for order. A customer created by an earlier
// failed attempt is found by its external id and reused.
func (r *CustomerResolver) Resolve(ctx context.Context, order *integration.SourceOrder) (*integration.CustomerResolution, error) {
	resolution, err := r.BuildCandidate(ctx, order)
	if err != nil {
		return nil, err
	}
	if resolution.Candidate.Existing {
		return resolution, nil
	}

	candidate := resolution.Candidate
	prior, err := r.directory.FindByExternalID(ctx, candidate.ExternalID)
	if err != nil {
		return nil, err
	}
	if prior != nil {
		r.logger.Info("Matched customer created by an earlier attempt",
			zap.String("order_id", order.ID()),
			zap.String("customer_id", prior.ID),
			zap.String("external_id", candidate.ExternalID),
		)
		resolution.CustomerID = prior.ID
		return resolution, nil
	}

	id, err := r.directory.CreateCustomer(ctx, candidate)
	if err != nil {
		return nil, err
	}
	resolution.CustomerID = id
	resolution.Created = true
	return resolution, nil
}

// BuildCandidate applies the policy and performs the directory searches, without
// creating anything. CustomerID is set only when an existing customer is reused.
func (r *CustomerResolver) BuildCandidate(ctx context.Context, order *integration.SourceOrder) (*integration.CustomerResolution, error) {
	if r.policy.IsDropship(order.PaymentMethod()) {
		return r.personCandidate(ctx, order)
	}
	return r.companyCandidate(ctx, order)
}

func (r *CustomerResolver) personCandidate(ctx context.Context, order *integration.SourceOrder) (*integration.CustomerResolution, error) {
	billing := order.Billing()
	addr := billing
	if shipping, ok := order.Shipping(); ok && shipping.HasName() {
		addr = shipping
	}
	if !addr.HasName() {
		return nil, integration.NewValidationError("dropship customer name is missing",
			"Shipping.FirstName", "Shipping.LastName", "Billing.FirstName", "Billing.LastName")
	}

	suffix := order.InvoiceReference()
	if suffix == "" {
		suffix = order.ID()
	}

	candidate := integration.CustomerCandidate{
		IsPerson:         true,
		FirstName:        strings.TrimSpace(addr.FirstName),
		LastName:         strings.TrimSpace(strings.TrimSpace(addr.LastName) + " " + suffix),
		Phone:            strings.TrimSpace(addr.Phone),
		UniquenessSuffix: suffix,
		ExternalID:       order.CustomerExternalID(r.policy.SourcePrefix),
	}

	parentID, err := r.parentCompanyID(ctx, billing)
	if err != nil {
		return nil, err
	}
	candidate.ParentCompanyID = parentID

	return &integration.CustomerResolution{Candidate: candidate}, nil
}

func (r *CustomerResolver) companyCandidate(ctx context.Context, order *integration.SourceOrder) (*integration.CustomerResolution, error) {
	billing := order.Billing()
	email := r.policy.AlternateEmail(order)

	if email != "" {
		existing, err := r.directory.FindStoreCustomerByEmail(ctx, email)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return &integration.CustomerResolution{
				Candidate: integration.CustomerCandidate{
					IsPerson:    false,
					FirstName:   existing.FirstName,
					LastName:    existing.LastName,
					CompanyName: existing.CompanyName,
					Email:       existing.Email,
					Phone:       existing.Phone,
					Existing:    true,
				},
				CustomerID: existing.ID,
			}, nil
		}
	}

	name := strings.TrimSpace(billing.Company)
	if name == "" {
		name = billing.FullName()
	}
	if name == "" {
		return nil, integration.NewValidationError("company customer name is missing",
			"Billing.Company", "Billing.FirstName", "Billing.LastName")
	}

	candidate := integration.CustomerCandidate{
		IsPerson:    false,
		FirstName:   strings.TrimSpace(billing.FirstName),
		LastName:    strings.TrimSpace(billing.LastName),
		CompanyName: name,
		Email:       email,
		Phone:       strings.TrimSpace(billing.Phone),
		ExternalID:  order.CustomerExternalID(r.policy.SourcePrefix),
	}
	if candidate.Email == "" {
		candidate.Email = strings.TrimSpace(billing.Email)
	}

	taken, err := r.directory.CompanyNameExists(ctx, name)
	if err != nil {
		return nil, err
	}
	if taken {
		candidate.UniquenessSuffix = order.ID()
		candidate.CompanyName = name + " (" + order.ID() + ")"
	}

	parentID, err := r.parentCompanyID(ctx, billing)
	if err != nil {
		return nil, err
	}
	candidate.ParentCompanyID = parentID

	return &integration.CustomerResolution{Candidate: candidate}, nil
}

// parentCompanyID searches a company by billing email or phone; absence is not an error
func (r *CustomerResolver) parentCompanyID(ctx context.Context, billing integration.Address) (string, error) {
	parent, err := r.directory.FindParentCompany(ctx, billing.Email, billing.Phone)
	if err != nil {
		return "", err
	}
	if parent == nil {
		return "", nil
	}
	return parent.ID, nil
}
