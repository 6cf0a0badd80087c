// Package seed populates an empty database with synthetic demo data:
// customers, transactions with roughly 5% injected anomalies, and the
// fictional policy document set used for retrieval.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sheier-tomer/enterprise-agent-workflow-demo/internal/embedding"
	"github.com/sheier-tomer/enterprise-agent-workflow-demo/internal/model"
)

// Store is the subset of storage methods the seeder needs.
type Store interface {
	CountCustomers(ctx context.Context) (int, error)
	CreateCustomer(ctx context.Context, c model.Customer) error
	InsertTransactions(ctx context.Context, txns []model.Transaction) error
	InsertPolicyDocument(ctx context.Context, doc model.PolicyDocument) error
}

// Counts reports how many records a seeding pass created.
type Counts struct {
	Customers    int
	Transactions int
	Policies     int
}

// Seeder generates and inserts synthetic demo data.
type Seeder struct {
	store    Store
	provider embedding.Provider
	log      *slog.Logger
	rng      *rand.Rand
}

// New creates a seeder. The fixed seed keeps generated data stable
// across restarts of the same build.
func New(store Store, provider embedding.Provider, log *slog.Logger) *Seeder {
	return &Seeder{
		store:    store,
		provider: provider,
		log:      log,
		rng:      rand.New(rand.NewSource(42)),
	}
}

// Run seeds the database unless customers already exist. It returns the
// record counts it created; all zeros means seeding was skipped.
func (s *Seeder) Run(ctx context.Context, customerCount, transactionCount int) (Counts, error) {
	existing, err := s.store.CountCustomers(ctx)
	if err != nil {
		return Counts{}, fmt.Errorf("seed: check existing data: %w", err)
	}
	if existing > 0 {
		s.log.InfoContext(ctx, "database already contains data, skipping seeding")
		return Counts{}, nil
	}

	s.log.InfoContext(ctx, "seeding database",
		"customers", customerCount, "transactions", transactionCount)

	customers := s.generateCustomers(customerCount)
	for _, c := range customers {
		if err := s.store.CreateCustomer(ctx, c); err != nil {
			return Counts{}, fmt.Errorf("seed: insert customer: %w", err)
		}
	}

	txns := s.generateTransactions(customers, transactionCount, 0.05)
	if err := s.store.InsertTransactions(ctx, txns); err != nil {
		return Counts{}, fmt.Errorf("seed: insert transactions: %w", err)
	}

	policies, err := s.seedPolicies(ctx)
	if err != nil {
		return Counts{}, err
	}

	anomalies := 0
	for _, t := range txns {
		if t.IsAnomaly {
			anomalies++
		}
	}
	s.log.InfoContext(ctx, "database seeding completed",
		"customers", len(customers),
		"transactions", len(txns),
		"anomalies", anomalies,
		"policies", policies,
	)
	return Counts{Customers: len(customers), Transactions: len(txns), Policies: policies}, nil
}

func (s *Seeder) seedPolicies(ctx context.Context) (int, error) {
	contents := make([]string, len(policyDocuments))
	for i, p := range policyDocuments {
		contents[i] = p.content
	}
	vectors, err := s.provider.EmbedBatch(ctx, contents)
	if err != nil {
		return 0, fmt.Errorf("seed: embed policies: %w", err)
	}

	for i, p := range policyDocuments {
		doc := model.PolicyDocument{
			ID:        uuid.New(),
			Title:     p.title,
			Content:   p.content,
			Category:  p.category,
			Embedding: vectors[i],
			CreatedAt: time.Now().UTC(),
		}
		if err := s.store.InsertPolicyDocument(ctx, doc); err != nil {
			return 0, fmt.Errorf("seed: insert policy %q: %w", p.title, err)
		}
	}
	return len(policyDocuments), nil
}

func (s *Seeder) generateCustomers(count int) []model.Customer {
	customers := make([]model.Customer, count)
	for i := range customers {
		first := firstNames[s.rng.Intn(len(firstNames))]
		last := lastNames[s.rng.Intn(len(lastNames))]
		customers[i] = model.Customer{
			ID:          uuid.New(),
			Name:        first + " " + last,
			Email:       fmt.Sprintf("%s.%s.%d@example.com", strings.ToLower(first), strings.ToLower(last), i),
			AccountType: accountTypes[s.rng.Intn(len(accountTypes))],
			CreatedAt:   time.Now().UTC().AddDate(0, 0, -s.rng.Intn(730)),
		}
	}
	return customers
}

// generateTransactions produces count transactions across the customers,
// with anomalyRate of them injected as labeled anomalies of one of four
// shapes: oversized amount, odd hour, foreign merchant, or burst.
func (s *Seeder) generateTransactions(customers []model.Customer, count int, anomalyRate float64) []model.Transaction {
	numAnomalies := int(float64(count) * anomalyRate)
	txns := make([]model.Transaction, 0, count)

	for i := 0; i < count-numAnomalies; i++ {
		customer := customers[s.rng.Intn(len(customers))]
		category := categories[s.rng.Intn(len(categories))]
		lo, hi := amountRanges[category][0], amountRanges[category][1]
		txns = append(txns, model.Transaction{
			ID:         uuid.New(),
			CustomerID: customer.ID,
			Amount:     round2(lo + s.rng.Float64()*(hi-lo)),
			Currency:   "USD",
			Merchant:   s.pickMerchant(category),
			Category:   category,
			OccurredAt: s.timestamp(6, 23),
			IsAnomaly:  false,
		})
	}

	for i := 0; i < numAnomalies; i++ {
		customer := customers[s.rng.Intn(len(customers))]
		category := categories[s.rng.Intn(len(categories))]
		lo, hi := amountRanges[category][0], amountRanges[category][1]

		var (
			amount   float64
			merchant string
			when     time.Time
		)
		switch s.rng.Intn(4) {
		case 0: // oversized amount
			amount = round2(lo*10 + s.rng.Float64()*(hi*15-lo*10))
			merchant = s.pickMerchant(category)
			when = s.timestamp(6, 23)
		case 1: // odd hour
			amount = round2(lo + s.rng.Float64()*(hi-lo))
			merchant = s.pickMerchant(category)
			when = s.timestamp(2, 5)
		case 2: // foreign merchant
			amount = round2(lo*2 + s.rng.Float64()*(hi*3-lo*2))
			merchant = foreignCountries[s.rng.Intn(len(foreignCountries))] + "-" + s.pickMerchant(category)
			when = s.timestamp(6, 23)
		default: // burst of small charges
			amount = round2(lo + s.rng.Float64()*(hi*0.5-lo))
			merchant = s.pickMerchant(category)
			when = s.timestamp(6, 23)
		}

		txns = append(txns, model.Transaction{
			ID:         uuid.New(),
			CustomerID: customer.ID,
			Amount:     amount,
			Currency:   "USD",
			Merchant:   merchant,
			Category:   category,
			OccurredAt: when,
			IsAnomaly:  true,
		})
	}

	return txns
}

func (s *Seeder) pickMerchant(category string) string {
	options := merchants[category]
	return options[s.rng.Intn(len(options))]
}

// timestamp picks a moment in the last 90 days with the hour drawn from
// [hourLo, hourHi].
func (s *Seeder) timestamp(hourLo, hourHi int) time.Time {
	day := time.Now().UTC().AddDate(0, 0, -s.rng.Intn(90)).Truncate(24 * time.Hour)
	hour := hourLo + s.rng.Intn(hourHi-hourLo+1)
	minute := s.rng.Intn(60)
	return day.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
