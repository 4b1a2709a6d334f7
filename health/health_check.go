package health

import (
	"encoding/json"
	"time"

	"github.com/op/go-logging"
	"github.com/pkp/pln/constants"
	"github.com/pkp/pln/context"
	"github.com/pkp/pln/models"
	"github.com/pkp/pln/network"
)

// SilentProvider is what operators are told about a provider that
// has not contacted us.
type SilentProvider struct {
	Uuid      string    `json:"uuid"`
	Url       string    `json:"url"`
	Title     string    `json:"title"`
	Contacted time.Time `json:"contacted"`
}

// Notification is one health check's message to operators.
type Notification struct {
	Days      int              `json:"days"`
	Providers []SilentProvider `json:"providers"`
}

// Notifier tells operators about silent providers.
type Notifier interface {
	Notify(notification *Notification) error
}

// LogNotifier writes notifications to the message log.
type LogNotifier struct {
	Log *logging.Logger
}

func (notifier *LogNotifier) Notify(notification *Notification) error {
	notifier.Log.Warning("%d providers silent for %d days", len(notification.Providers), notification.Days)
	for _, provider := range notification.Providers {
		notifier.Log.Warning("Silent provider %s (%s) %s, last contact %s", provider.Uuid,
			provider.Title, provider.Url, provider.Contacted.Format(time.RFC3339))
	}
	return nil
}

// NSQNotifier publishes notifications as JSON to an NSQ topic,
// where the operators' mailer picks them up.
type NSQNotifier struct {
	Client *network.NSQClient
	Topic  string
}

func (notifier *NSQNotifier) Notify(notification *Notification) error {
	data, err := json.Marshal(notification)
	if err != nil {
		return err
	}
	return notifier.Client.Enqueue(notifier.Topic, string(data))
}

// HealthReport says what a health check found and did.
type HealthReport struct {
	Days      int
	DryRun    bool
	Silent    []string
	Healthy   []string
	Unhealthy []string
}

// Checker finds providers that have gone quiet, tells operators,
// and pings each one to see whether it is still there.
type Checker struct {
	Context  *context.Context
	Pinger   *Pinger
	Notifier Notifier
}

func NewChecker(_context *context.Context) *Checker {
	var notifier Notifier = &LogNotifier{Log: _context.MessageLog}
	if _context.NSQClient != nil && _context.Config.NotificationTopic != "" {
		notifier = &NSQNotifier{Client: _context.NSQClient, Topic: _context.Config.NotificationTopic}
	}
	return &Checker{
		Context:  _context,
		Pinger:   NewPinger(_context),
		Notifier: notifier,
	}
}

// SilentProviders returns every provider we have not heard from in
// days days, whatever its status.
func (checker *Checker) SilentProviders(days int) ([]*models.Provider, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -days)
	silent := make([]*models.Provider, 0)
	err := checker.Context.Store.ForEachProvider(func(provider *models.Provider) error {
		if provider.IsSilentSince(cutoff) {
			silent = append(silent, provider)
		}
		return nil
	})
	return silent, err
}

// Run checks on providers silent for days days. A provider that
// answers a ping and has accepted the terms of use is healthy
// again; any other is marked unhealthy and notified. A dry run
// only reports the silent providers.
func (checker *Checker) Run(days int, dryRun bool) (*HealthReport, error) {
	if days <= 0 {
		days = checker.Context.Config.DaysSilent
	}
	report := &HealthReport{
		Days:      days,
		DryRun:    dryRun,
		Silent:    make([]string, 0),
		Healthy:   make([]string, 0),
		Unhealthy: make([]string, 0),
	}
	silent, err := checker.SilentProviders(days)
	if err != nil {
		return report, err
	}
	for _, provider := range silent {
		report.Silent = append(report.Silent, provider.Uuid)
	}
	if len(silent) == 0 || dryRun {
		return report, nil
	}

	notification := &Notification{Days: days, Providers: make([]SilentProvider, len(silent))}
	for i, provider := range silent {
		notification.Providers[i] = SilentProvider{
			Uuid:      provider.Uuid,
			Url:       provider.Url,
			Title:     provider.Title,
			Contacted: provider.Contacted,
		}
	}
	if err = checker.Notifier.Notify(notification); err != nil {
		checker.Context.MessageLog.Error("Cannot send health notification: %v", err)
	}

	for _, provider := range silent {
		result, err := checker.Pinger.Ping(provider)
		if err != nil {
			return report, err
		}
		healthy := !result.HasError() && result.TermsAccepted
		_, err = checker.Context.Store.UpdateProvider(provider.Uuid, func(p *models.Provider) error {
			now := time.Now().UTC()
			p.UpdatedAt = now
			if healthy {
				p.Status = constants.ProviderHealthy
				p.Contacted = now
			} else {
				p.Status = constants.ProviderUnhealthy
				p.Notified = now
			}
			return nil
		})
		if err != nil {
			return report, err
		}
		if healthy {
			report.Healthy = append(report.Healthy, provider.Uuid)
		} else {
			report.Unhealthy = append(report.Unhealthy, provider.Uuid)
		}
	}
	checker.Context.MessageLog.Info("Health check: %d silent, %d healthy again, %d unhealthy",
		len(report.Silent), len(report.Healthy), len(report.Unhealthy))
	return report, nil
}
