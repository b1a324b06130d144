package recurrence

import (
	"context"
	"fmt"
	"time"

	"moneybook/internal/core"
	"moneybook/internal/log"
	"moneybook/internal/services"
	"moneybook/internal/storage"
)

// Processor creates the transactions recurring templates owe up to today.
type Processor struct {
	repo   *storage.SQLiteRepository
	ledger *services.LedgerService
	log    *log.Logger
}

func NewProcessor(repo *storage.SQLiteRepository, ledger *services.LedgerService, logger *log.Logger) *Processor {
	if logger == nil {
		logger = log.Default()
	}
	return &Processor{
		repo:   repo,
		ledger: ledger,
		log:    logger.WithComponent(log.ComponentRecurrence),
	}
}

// ProcessDue materializes every occurrence that fell due since each
// template's last run, through today. Missed days are caught up. A failing
// template is logged and skipped; the rows created so far are returned.
func (p *Processor) ProcessDue(ctx context.Context, now time.Time) ([]core.Transaction, error) {
	if p.repo == nil || p.ledger == nil {
		return nil, fmt.Errorf("processor not properly initialized")
	}

	templates, err := p.repo.ListRecurringTemplates(ctx)
	if err != nil {
		return nil, fmt.Errorf("list recurring templates: %w", err)
	}

	today := core.DateOf(now)
	p.log.InfoContext(ctx, "Processing recurring transactions",
		"templates", len(templates),
		log.FieldDate, today.String())

	var created []core.Transaction
	for _, tpl := range templates {
		rows, err := p.processTemplate(ctx, tpl, today)
		created = append(created, rows...)
		if err != nil {
			p.log.LogError(ctx, "Failed to process recurring template", err,
				log.NewFields().WithTransaction(tpl.Transaction))
			continue
		}
	}

	p.log.InfoContext(ctx, "Recurring processing complete",
		"created", len(created),
		"templates", len(templates))
	return created, nil
}

func (p *Processor) processTemplate(ctx context.Context, tpl storage.RecurringTemplate, today core.Date) ([]core.Transaction, error) {
	sched, err := GetSchedule(tpl.Recurrence.Every)
	if err != nil {
		return nil, err
	}

	last := tpl.LastRun
	if last.IsZero() {
		last = tpl.Date
	}

	var created []core.Transaction
	for _, d := range Due(sched, tpl.Date, last, today, tpl.Recurrence.EndDate) {
		occurrence := tpl.Transaction
		occurrence.ID = 0
		occurrence.Date = d
		occurrence.Recurrence = nil

		row, err := p.ledger.AddOccurrence(ctx, tpl.ID, occurrence)
		if err != nil {
			return created, fmt.Errorf("materialize %s of template %d: %w", d, tpl.ID, err)
		}
		created = append(created, row)

		p.log.InfoContext(ctx, "Created transaction from recurring template",
			"template_id", tpl.ID,
			log.FieldTransactionID, row.ID,
			log.FieldAmount, row.Amount.String(),
			"frequency", tpl.Recurrence.Every)
	}
	return created, nil
}
