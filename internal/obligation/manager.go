package obligation

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"recurring-patterns-system/internal/models"
)

// Пороги деградации паттерна по числу подряд пропущенных циклов
const (
	// MissesBeforePause — после второго пропуска паттерн приостанавливается
	MissesBeforePause = 1
	// MissesBeforeBreak — после четвертого пропуска паттерн считается сломанным
	MissesBeforeBreak = 3

	// MaxLazySweepCycles — предел ленивой развертки пропусков за один заход:
	// длительный простой не должен породить сотни missed-записей
	MaxLazySweepCycles = 6

	// ConfidencePenaltyPerMiss — штраф множителя уверенности за пропуск
	ConfidencePenaltyPerMiss = 0.15
	// ConfidenceRewardPerHit — восстановление множителя за исполнение
	ConfidenceRewardPerHit = 0.05
)

// Manager — чистая машина состояний жизненного цикла обязательств.
// Не обращается к хранилищу: принимает состояние, возвращает новое состояние.
// Персистентность — забота вызывающего (матчера или discovery-сервиса).
type Manager struct{}

func NewManager() *Manager {
	return &Manager{}
}

// ToleranceDays возвращает допуск окна исполнения в днях для случая паттерна.
// Для custom_interval допуск пропорционален интервалу и ограничен с обеих
// сторон: слишком узкое окно не прощает выходных, слишком широкое
// перекрывается со следующим циклом.
func (m *Manager) ToleranceDays(patternCase string, intervalDays int) int {
	switch patternCase {
	case models.CaseFixedMonthly, models.CaseVariableMonthly, models.CaseFlexibleMonthly:
		return 3
	case models.CaseBiMonthly:
		return 5
	case models.CaseQuarterly:
		return 7
	default:
		tol := int(math.Round(0.15 * float64(intervalDays)))
		if tol < 2 {
			tol = 2
		}
		if tol > 7 {
			tol = 7
		}
		return tol
	}
}

// NextExpectedDate возвращает дату следующего ожидания. Отсчет всегда от
// предыдущей ожидаемой даты, а не от фактической: окно не дрейфует из-за
// ранних или поздних исполнений (замыкание интервала).
func (m *Manager) NextExpectedDate(prevExpected time.Time, intervalDays int) time.Time {
	return prevExpected.AddDate(0, 0, intervalDays)
}

// EstimateAmountWindow пересчитывает ожидаемую полосу сумм по последним
// исполнениям (обычно три). Поведение полосы зависит от типа суммы паттерна:
// фиксированная сумма дает точечное окно, переменная — среднее ± σ,
// сильно переменная — только наблюдаемый размах.
func (m *Manager) EstimateAmountWindow(pattern *models.Pattern, recent []decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	if len(recent) == 0 {
		return pattern.AmountMin, pattern.AmountMax
	}

	min, max := recent[0], recent[0]
	sum := decimal.Zero
	for _, v := range recent {
		if v.LessThan(min) {
			min = v
		}
		if v.GreaterThan(max) {
			max = v
		}
		sum = sum.Add(v)
	}

	switch pattern.AmountBehavior {
	case models.AmountFixed:
		return pattern.RepresentativeAmount, pattern.RepresentativeAmount
	case models.AmountVariable:
		mean := sum.Div(decimal.NewFromInt(int64(len(recent))))
		sigma := stddevDecimal(recent, mean)
		lo := mean.Sub(sigma)
		hi := mean.Add(sigma)
		floor := min.Mul(decimal.NewFromFloat(0.95))
		ceil := max.Mul(decimal.NewFromFloat(1.05))
		if lo.GreaterThan(floor) {
			lo = floor
		}
		if hi.LessThan(ceil) {
			hi = ceil
		}
		return lo, hi
	default:
		return min, max
	}
}

// NewObligation создает следующее ожидаемое обязательство паттерна
func (m *Manager) NewObligation(pattern *models.Pattern, expectedDate time.Time, minAmount, maxAmount decimal.Decimal) *models.Obligation {
	now := time.Now().UTC()
	return &models.Obligation{
		ID:                "obl_" + uuid.New().String(),
		PatternID:         pattern.ID,
		ExpectedDate:      dateOnly(expectedDate),
		ToleranceDays:     m.ToleranceDays(pattern.PatternCase, pattern.IntervalDays),
		ExpectedMinAmount: minAmount,
		ExpectedMaxAmount: maxAmount,
		Status:            models.ObligationExpected,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// WithinWindow сообщает, попадает ли дата транзакции в окно допуска
// обязательства. Сравнение ведется по целым дням, границы включительно.
func (m *Manager) WithinWindow(o *models.Obligation, occurredAt time.Time) bool {
	d := dateOnly(occurredAt)
	return !d.Before(dateOnly(o.WindowStart())) && !d.After(dateOnly(o.WindowEnd()))
}

// DaysEarly возвращает, на сколько дней раньше ожидаемой даты пришло
// исполнение (отрицательное значение — опоздание)
func (m *Manager) DaysEarly(o *models.Obligation, occurredAt time.Time) int {
	return daysBetween(occurredAt, o.ExpectedDate)
}

// IsOverdue сообщает, что окно обязательства закрылось без исполнения
func (m *Manager) IsOverdue(o *models.Obligation, now time.Time) bool {
	return o.Status == models.ObligationExpected && dateOnly(now).After(dateOnly(o.WindowEnd()))
}

// MatchScore возвращает составной приоритет сопоставления: близость по дате
// нормирована допуском, промах по сумме — верхней границей полосы. Меньше —
// лучше. Транзакция внутри полосы сумм штрафа по сумме не получает.
func (m *Manager) MatchScore(o *models.Obligation, occurredAt time.Time, amount decimal.Decimal) float64 {
	dateDist := math.Abs(float64(daysBetween(o.ExpectedDate, occurredAt)))
	score := dateDist / math.Max(1, float64(o.ToleranceDays))

	var amountDist decimal.Decimal
	if amount.LessThan(o.ExpectedMinAmount) {
		amountDist = o.ExpectedMinAmount.Sub(amount)
	} else if amount.GreaterThan(o.ExpectedMaxAmount) {
		amountDist = amount.Sub(o.ExpectedMaxAmount)
	}
	if amountDist.IsPositive() && o.ExpectedMaxAmount.IsPositive() {
		ratio, _ := amountDist.Div(o.ExpectedMaxAmount).Float64()
		score += ratio
	}
	return score
}

// FulfillResult — новое состояние после исполнения обязательства
type FulfillResult struct {
	Obligation *models.Obligation
	Streak     *models.PatternStreak
	// NewStatus — статус паттерна после исполнения (всегда active:
	// исполнение возвращает даже сломанный паттерн в строй)
	NewStatus string
}

// Fulfill переводит обязательство в fulfilled и обновляет стрик.
// Исполнение обнуляет счетчик пропусков и восстанавливает статус паттерна:
// возобновившаяся серия снова активна независимо от глубины деградации.
func (m *Manager) Fulfill(o *models.Obligation, streak *models.PatternStreak, tx *models.Transaction) *FulfillResult {
	now := time.Now().UTC()
	early := m.DaysEarly(o, tx.OccurredAt)
	actual := dateOnly(tx.OccurredAt)

	o.Status = models.ObligationFulfilled
	o.FulfilledByTransactionID = &tx.ID
	o.FulfilledAt = &now
	o.DaysEarly = &early
	o.UpdatedAt = now

	streak.CurrentStreak++
	if streak.CurrentStreak > streak.LongestStreak {
		streak.LongestStreak = streak.CurrentStreak
	}
	streak.MissedCount = 0
	streak.ConfidenceMultiplier = math.Min(1.0, streak.ConfidenceMultiplier+ConfidenceRewardPerHit)
	streak.LastActualDate = &actual
	expected := dateOnly(o.ExpectedDate)
	streak.LastExpectedDate = &expected
	streak.UpdatedAt = now

	return &FulfillResult{Obligation: o, Streak: streak, NewStatus: models.PatternActive}
}

// MissResult — новое состояние после фиксации пропуска
type MissResult struct {
	Obligation *models.Obligation
	Streak     *models.PatternStreak
	NewStatus  string
}

// Miss переводит просроченное обязательство в missed и деградирует паттерн:
// стрик обнуляется, множитель уверенности падает, статус понижается
// по порогам подряд пропущенных циклов.
func (m *Manager) Miss(o *models.Obligation, streak *models.PatternStreak) *MissResult {
	now := time.Now().UTC()

	o.Status = models.ObligationMissed
	o.UpdatedAt = now

	streak.CurrentStreak = 0
	streak.MissedCount++
	streak.ConfidenceMultiplier = math.Max(0, streak.ConfidenceMultiplier-ConfidencePenaltyPerMiss)
	expected := dateOnly(o.ExpectedDate)
	streak.LastExpectedDate = &expected
	streak.UpdatedAt = now

	status := models.PatternActive
	switch {
	case streak.MissedCount > MissesBeforeBreak:
		status = models.PatternBroken
	case streak.MissedCount > MissesBeforePause:
		status = models.PatternPaused
	}

	return &MissResult{Obligation: o, Streak: streak, NewStatus: status}
}

// RepairObligation восстанавливает отсутствующее ожидаемое обязательство.
// Инвариант "у живого паттерна ровно одно expected" чинится на месте чтения:
// новое ожидание отсчитывается от последней известной ожидаемой даты.
func (m *Manager) RepairObligation(pattern *models.Pattern, streak *models.PatternStreak, minAmount, maxAmount decimal.Decimal) (*models.Obligation, error) {
	var base time.Time
	switch {
	case streak.LastExpectedDate != nil:
		base = *streak.LastExpectedDate
	case streak.LastActualDate != nil:
		base = *streak.LastActualDate
	default:
		return nil, fmt.Errorf("pattern %s: no anchor date to repair obligation from", pattern.ID)
	}
	next := m.NextExpectedDate(base, pattern.IntervalDays)
	return m.NewObligation(pattern, next, minAmount, maxAmount), nil
}

func dateOnly(t time.Time) time.Time {
	y, mo, d := t.UTC().Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)
}

// daysBetween возвращает b - a в целых днях
func daysBetween(a, b time.Time) int {
	return int(dateOnly(b).Sub(dateOnly(a)).Hours() / 24)
}

func stddevDecimal(values []decimal.Decimal, mean decimal.Decimal) decimal.Decimal {
	if len(values) < 2 {
		return decimal.Zero
	}
	sum := 0.0
	mf, _ := mean.Float64()
	for _, v := range values {
		vf, _ := v.Float64()
		sum += (vf - mf) * (vf - mf)
	}
	return decimal.NewFromFloat(math.Sqrt(sum / float64(len(values)-1)))
}
