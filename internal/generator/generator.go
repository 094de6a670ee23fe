package generator

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"recurring-patterns-system/internal/models"
)

// Profile описывает синтетическую повторяющуюся серию для демо-данных
// и приемочных проверок discovery
type Profile struct {
	Name            string
	PayeeID         string
	Direction       string
	CurrencyID      string
	IntervalDays    int
	BaseAmount      decimal.Decimal
	AmountJitterPct float64 // доля от базовой суммы, например 0.1 = ±10%
	DayJitter       int     // случайный сдвиг даты в днях, ±
}

// Готовые профили, покрывающие все случаи паттернов
var (
	Salary = Profile{
		Name: "salary", PayeeID: "employer", Direction: models.DirectionCredit,
		CurrencyID: "INR", IntervalDays: 30,
		BaseAmount: decimal.NewFromInt(50000), AmountJitterPct: 0, DayJitter: 1,
	}
	Rent = Profile{
		Name: "rent", PayeeID: "landlord", Direction: models.DirectionDebit,
		CurrencyID: "INR", IntervalDays: 30,
		BaseAmount: decimal.NewFromInt(15000), AmountJitterPct: 0, DayJitter: 0,
	}
	ChitFund = Profile{
		Name: "chit", PayeeID: "chit-fund", Direction: models.DirectionDebit,
		CurrencyID: "INR", IntervalDays: 30,
		BaseAmount: decimal.NewFromInt(5000), AmountJitterPct: 0.15, DayJitter: 2,
	}
	Recharge = Profile{
		Name: "recharge", PayeeID: "telecom", Direction: models.DirectionDebit,
		CurrencyID: "INR", IntervalDays: 28,
		BaseAmount: decimal.NewFromInt(599), AmountJitterPct: 0, DayJitter: 0,
	}
)

// Generator порождает детерминированные синтетические транзакции:
// один и тот же seed дает одну и ту же серию
type Generator struct {
	rng *rand.Rand
}

func New(seed int64) *Generator {
	return &Generator{rng: rand.New(rand.NewSource(seed))}
}

// Series возвращает count транзакций профиля, начиная с даты start
func (g *Generator) Series(userID string, p Profile, start time.Time, count int) []*models.Transaction {
	transactions := make([]*models.Transaction, 0, count)
	date := start.UTC()

	for i := 0; i < count; i++ {
		occurred := date
		if p.DayJitter > 0 {
			shift := g.rng.Intn(2*p.DayJitter+1) - p.DayJitter
			occurred = occurred.AddDate(0, 0, shift)
		}

		amount := p.BaseAmount
		if p.AmountJitterPct > 0 {
			jitter := (g.rng.Float64()*2 - 1) * p.AmountJitterPct
			amount = p.BaseAmount.Mul(decimal.NewFromFloat(1 + jitter)).Round(2)
		}

		transactions = append(transactions, &models.Transaction{
			ID:              "txn_" + uuid.New().String(),
			UserID:          userID,
			PayeeID:         p.PayeeID,
			Direction:       p.Direction,
			CurrencyID:      p.CurrencyID,
			OccurredAt:      occurred,
			Amount:          amount,
			SourceMessageID: fmt.Sprintf("gen-%s-%s-%d", userID, p.Name, i),
			Description:     fmt.Sprintf("synthetic %s #%d", p.Name, i+1),
			CreatedAt:       time.Now().UTC(),
		})

		date = date.AddDate(0, 0, p.IntervalDays)
	}
	return transactions
}
