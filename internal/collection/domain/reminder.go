package domain

import (
	"bytes"
	"fmt"
	"text/template"
	"time"

	"github.com/smallbiznis/mensalidade/internal/clock"
	installmentdomain "github.com/smallbiznis/mensalidade/internal/installment/domain"
)

const reminderDateLayout = "02/01/2006"

// Templates holds the parsed reminder bodies.
type Templates struct {
	upcoming *template.Template
	overdue  *template.Template
}

func ParseTemplates(upcoming, overdue string) (*Templates, error) {
	up, err := template.New("upcoming").Option("missingkey=error").Parse(upcoming)
	if err != nil {
		return nil, fmt.Errorf("%w: upcoming: %v", ErrInvalidTemplate, err)
	}
	late, err := template.New("overdue").Option("missingkey=error").Parse(overdue)
	if err != nil {
		return nil, fmt.Errorf("%w: overdue: %v", ErrInvalidTemplate, err)
	}
	return &Templates{upcoming: up, overdue: late}, nil
}

// Render picks the overdue wording when the installment is overdue on today.
func (t *Templates) Render(clientName string, inst installmentdomain.Installment, today time.Time) (string, error) {
	data := ReminderData{
		ClientName: clientName,
		Amount:     FormatAmount(inst.Amount),
		DueDate:    clock.Truncate(inst.DueDate).Format(reminderDateLayout),
	}

	tmpl := t.upcoming
	if installmentdomain.ResolveStatus(inst, today) == installmentdomain.EffectiveOverdue {
		tmpl = t.overdue
		data.DaysLate = clock.DaysBetween(inst.DueDate, today)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
