package alert

import (
	"context"
	"crimson-backend/internal/utils/mailing"
	"crimson-backend/pkg/bloodcamp"
	"crimson-backend/pkg/ledger"
	"crimson-backend/pkg/organ"
	"fmt"
	"html"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

const (
	DefaultUrgencyThreshold = 4
	queueSize               = 64
)

type (
	AlertService interface {
		// Observe is a ledger observer. It never blocks the tracker; alerts
		// that do not fit in the queue are dropped and logged.
		Observe(snap ledger.TxSnapshot)
		// Run sends queued alerts until ctx is done.
		Run(ctx context.Context)
	}

	alertService struct {
		mailer     mailing.Mailer
		recipients []string
		urgency    uint64
		log        *zap.Logger
		queue      chan alert
	}

	alert struct {
		subject string
		body    string
	}
)

func NewAlertService(mailer mailing.Mailer, recipients []string, urgency uint64, log *zap.Logger) AlertService {
	if urgency == 0 {
		urgency = DefaultUrgencyThreshold
	}
	return &alertService{
		mailer:     mailer,
		recipients: recipients,
		urgency:    urgency,
		log:        log,
		queue:      make(chan alert, queueSize),
	}
}

func (s *alertService) Observe(snap ledger.TxSnapshot) {
	if snap.Stage != ledger.StageSuccess || len(s.recipients) == 0 {
		return
	}
	a, ok := s.compose(snap)
	if !ok {
		return
	}
	select {
	case s.queue <- a:
	default:
		s.log.Warn("alert queue full, dropping alert", zap.String("subject", a.subject))
	}
}

func (s *alertService) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case a := <-s.queue:
			if err := s.mailer.Send(s.recipients, a.subject, a.body); err != nil {
				s.log.Error("failed to send alert", zap.String("subject", a.subject), zap.Error(err))
				continue
			}
			s.log.Info("alert sent", zap.String("subject", a.subject), zap.Int("recipients", len(s.recipients)))
		}
	}
}

func (s *alertService) compose(snap ledger.TxSnapshot) (alert, bool) {
	switch {
	case snap.Contract == bloodcamp.ContractName && snap.Function == "updateInventory":
		return lowStock(snap)
	case snap.Contract == organ.ContractName && snap.Function == "createOrganRequest":
		return s.urgentRequest(snap)
	}
	return alert{}, false
}

func lowStock(snap ledger.TxSnapshot) (alert, bool) {
	if len(snap.Args) != 3 {
		return alert{}, false
	}
	campID, ok1 := snap.Args[0].(*big.Int)
	bt, ok2 := snap.Args[1].(uint8)
	qty, ok3 := snap.Args[2].(*big.Int)
	if !ok1 || !ok2 || !ok3 {
		return alert{}, false
	}
	level, _ := bloodcamp.StockLevel(qty)
	if level != bloodcamp.LevelEmpty && level != bloodcamp.LevelCritical {
		return alert{}, false
	}

	bloodType := bloodcamp.BloodType(bt)
	return alert{
		subject: fmt.Sprintf("[Crimson] %s stock %s at camp %s", bloodType, level, campID),
		body: fmt.Sprintf(
			"<p>Camp <b>%s</b> now holds <b>%s</b> units of <b>%s</b> blood (%s).</p><p>Transaction %s, block %d.</p>",
			campID, qty, html.EscapeString(bloodType.String()), level, snap.Hash.Hex(), snap.BlockNumber,
		),
	}, true
}

func (s *alertService) urgentRequest(snap ledger.TxSnapshot) (alert, bool) {
	if len(snap.Args) != 6 {
		return alert{}, false
	}
	hospitalID, ok1 := snap.Args[0].(*big.Int)
	organType, ok2 := snap.Args[2].(string)
	bloodType, ok3 := snap.Args[3].(string)
	urgency, ok4 := snap.Args[4].(*big.Int)
	recipient, ok5 := snap.Args[5].(common.Address)
	if !ok1 || !ok2 || !ok3 || !ok4 || !ok5 {
		return alert{}, false
	}
	if !urgency.IsUint64() || urgency.Uint64() < s.urgency {
		return alert{}, false
	}

	return alert{
		subject: fmt.Sprintf("[Crimson] Urgent %s request at hospital %s", organType, hospitalID),
		body: fmt.Sprintf(
			"<p>Hospital <b>%s</b> needs a <b>%s</b> (blood type %s) for %s.</p><p>Urgency level %s. Transaction %s.</p>",
			hospitalID, html.EscapeString(organType), html.EscapeString(bloodType), recipient.Hex(), urgency, snap.Hash.Hex(),
		),
	}, true
}
