package summary

import (
	"fmt"

	"recurring-patterns-system/internal/models"
)

// Summarizer строит человекочитаемую сводку паттерна. Сводка строго
// совещательная: она никогда не участвует в классификации, сопоставлении
// или расчете уверенности. Ошибка сводки не валит discovery.
type Summarizer interface {
	Summarize(p *models.Pattern) (string, error)
}

// TemplateSummarizer — детерминированная реализация на шаблонах.
// Интерфейс оставлен на случай замены генератором текста: совещательный
// контракт при этом не меняется.
type TemplateSummarizer struct{}

func NewTemplateSummarizer() *TemplateSummarizer {
	return &TemplateSummarizer{}
}

func (s *TemplateSummarizer) Summarize(p *models.Pattern) (string, error) {
	verb := "payment"
	if p.Direction == models.DirectionCredit {
		verb = "income"
	}

	cadence := fmt.Sprintf("every %d days", p.IntervalDays)
	switch p.PatternCase {
	case models.CaseFixedMonthly, models.CaseVariableMonthly, models.CaseFlexibleMonthly:
		cadence = "monthly"
	case models.CaseBiMonthly:
		cadence = "every two months"
	case models.CaseQuarterly:
		cadence = "quarterly"
	}

	amount := fmt.Sprintf("about %s %s", p.RepresentativeAmount.StringFixed(2), p.CurrencyID)
	if p.AmountBehavior == models.AmountHighlyVariable {
		amount = fmt.Sprintf("between %s and %s %s",
			p.AmountMin.StringFixed(2), p.AmountMax.StringFixed(2), p.CurrencyID)
	}

	text := fmt.Sprintf("Recurring %s %s to %s, %s", cadence, verb, p.PayeeID, amount)
	if p.DayOfMonthHint != nil {
		text += fmt.Sprintf(", usually around day %d", *p.DayOfMonthHint)
	}
	return text, nil
}

var _ Summarizer = (*TemplateSummarizer)(nil)
