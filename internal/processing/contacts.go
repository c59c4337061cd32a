package processing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"homestyle_sync/internal/blocks"
	"homestyle_sync/internal/config"
	"homestyle_sync/internal/contacts"
	"homestyle_sync/internal/metrics"
	"homestyle_sync/internal/reconcile"

	"github.com/rs/zerolog/log"
)

// ContactLogHeaders is the header row of the contact log sheet.
var ContactLogHeaders = []string{
	"PHONE", "NAME", "PROJECT", "ADDRESS", "MAP_URL",
	"RESULT", "CONTACT_EXISTED", "SOURCE_ROW", "SYNC_AT",
}

const (
	contactResultCol  = 6
	contactExistedCol = 7

	outcomeCreated = "created"
	outcomeExisted = "existed"
	outcomeMissing = "missing"

	reasonNoPhone = "no_phone"
)

var errNoPhone = errors.New("no phone number")

// SyncContacts makes sure every active project's phone number exists in the
// contact directory, using the contact log to avoid repeat lookups.
func (r *Runner) SyncContacts(ctx context.Context) (Result, error) {
	t := r.startTally(OpContacts)

	if cp := r.probeDirectory(ctx); !cp.Available {
		return r.finish(t, Result{Summary: unavailableSummary(cp)}, false), nil
	}

	_, scan, err := r.mainScan(ctx)
	if err != nil {
		return Result{Operation: OpContacts}, err
	}
	if scan.Empty() {
		return r.finish(t, Result{Summary: noData}, true), nil
	}

	logTable, err := r.book.EnsureTable(ctx, r.cfg.Sheets.ContactLog, ContactLogHeaders)
	if err != nil {
		return Result{Operation: OpContacts}, fmt.Errorf("open contact log: %w", err)
	}
	contactLog := reconcile.Load(logTable, 1)

	opts := r.cfg.Contacts
	var policy blocks.Policy
	if !opts.IgnoreNameValidation {
		policy = append(policy, blocks.SkipInvalidName(r.model.Names))
	}
	policy = append(policy, blocks.SkipClosed())

	for {
		b, ok := scan.Next()
		if !ok {
			break
		}

		entry := contactEntry{
			name:    b.Text(config.FieldName),
			project: b.Label(),
			address: addressLine(b),
			mapURL:  b.Text(config.FieldMap),
			row:     b.Start,
			at:      r.now(),
		}
		if raw := contacts.ExtractPhone(b.Text(config.FieldPhone)); raw != "" {
			entry.phone = contacts.NormalizePhone(raw)
		}

		if d := policy.Evaluate(b); d.Skip {
			if d.Counted {
				t.skip(b, d.Reason)
				if opts.LogSkipReasons && entry.phone != "" {
					contactLog.Upsert(entry.phone, entry.values(reconcile.SkipResult(d.Reason), ""))
				}
			}
			continue
		}

		if entry.phone == "" && opts.SkipIfNoPhone {
			// without a phone there is no log key to record the skip under
			t.skip(b, reasonNoPhone)
			continue
		}

		if entry.phone != "" && opts.SkipIfLogged && contactLog.Has(entry.phone) {
			t.add(metrics.OutcomeCached)
			// a phone queued earlier in this run keeps its pending row
			if _, persisted := contactLog.Row(entry.phone); persisted {
				contactLog.Upsert(entry.phone, entry.values(reconcile.ResultCachedSkip, loggedExisted(contactLog, entry.phone)))
			}
			log.Debug().Int("row", b.Start).Str("phone", entry.phone).Msg("Contact already logged")
			continue
		}

		existed, err := r.ensureContact(ctx, b, entry)
		if errors.Is(err, errNoPhone) {
			t.skip(b, reasonNoPhone)
			continue
		}
		if err != nil {
			t.fail(b, b.Label()+": "+err.Error(), err)
			contactLog.Upsert(entry.phone, entry.values(reconcile.FailResult(err.Error()), ""))
			continue
		}

		flag := "N"
		if existed {
			flag = "Y"
			t.add(outcomeExisted)
		} else {
			t.add(outcomeCreated)
		}
		contactLog.Upsert(entry.phone, entry.values(reconcile.ResultOK, flag))
	}

	contactLog.Commit()

	summary := fmt.Sprintf("생성 %d / 기존 %d / 로그스킵 %d / 건너뜀 %d / 실패 %d",
		t.n(outcomeCreated), t.n(outcomeExisted), t.n(metrics.OutcomeCached),
		t.n(metrics.OutcomeSkip), t.n(metrics.OutcomeFail))
	return r.finish(t, Result{Summary: summary}, true), nil
}

// ensureContact looks the phone up and creates the contact when missing.
func (r *Runner) ensureContact(ctx context.Context, b blocks.Block, e contactEntry) (bool, error) {
	if e.phone == "" {
		return false, errNoPhone
	}
	r.metrics.IncCall("people")
	found, err := r.directory.LookupByPhone(ctx, e.phone)
	if err != nil {
		return false, err
	}
	if found {
		log.Info().Int("row", b.Start).Str("phone", e.phone).Msg("Contact already exists")
		return true, nil
	}

	name := e.name
	if name == "" {
		name = e.phone
	}
	r.metrics.IncCall("people")
	created, err := r.directory.Create(ctx, contacts.Contact{
		Name:    name,
		Phone:   e.phone,
		Notes:   contactNotes(e.address, e.mapURL),
		Address: e.address,
	})
	if err != nil {
		return false, err
	}
	if created.AddressErr != nil {
		Warning{Operation: OpContacts, Row: b.Start, Step: "contact address", Err: created.AddressErr}.Log()
	}
	log.Info().Int("row", b.Start).Str("phone", e.phone).Str("name", name).Msg("Created contact")
	return false, nil
}

// AuditContacts re-checks every logged phone against the directory and
// marks the ones that disappeared. Rows are never removed.
func (r *Runner) AuditContacts(ctx context.Context) (Result, error) {
	t := r.startTally(OpContactsAudit)

	if cp := r.probeDirectory(ctx); !cp.Available {
		return r.finish(t, Result{Summary: unavailableSummary(cp)}, false), nil
	}

	logTable, err := r.book.EnsureTable(ctx, r.cfg.Sheets.ContactLog, ContactLogHeaders)
	if err != nil {
		return Result{Operation: OpContactsAudit}, fmt.Errorf("open contact log: %w", err)
	}
	contactLog := reconcile.Load(logTable, 1)

	for _, e := range contactLog.Entries() {
		r.metrics.IncCall("people")
		found, err := r.directory.LookupByPhone(ctx, e.Key)
		if err != nil {
			t.add(metrics.OutcomeFail)
			t.failed = append(t.failed, fmt.Sprintf("%s: %v", e.Key, err))
			log.Warn().Err(err).Str("phone", e.Key).Int("row", e.Row).Msg("Contact audit lookup failed")
			continue
		}
		if found {
			t.add(metrics.OutcomeSuccess)
			continue
		}
		t.add(outcomeMissing)
		logTable.SetValue(e.Row, contactResultCol, reconcile.ResultMissingInContacts)
		logTable.SetValue(e.Row, contactExistedCol, "N")
		log.Info().Str("phone", e.Key).Int("row", e.Row).Msg("Logged contact missing from directory")
	}

	summary := fmt.Sprintf("검증 %d / 누락 %d / 실패 %d",
		t.n(metrics.OutcomeSuccess), t.n(outcomeMissing), t.n(metrics.OutcomeFail))
	return r.finish(t, Result{Summary: summary}, true), nil
}

func (r *Runner) probeDirectory(ctx context.Context) contacts.Capability {
	if r.directory == nil {
		return contacts.Unavailable("연락처 디렉터리 미설정")
	}
	return r.directory.Probe(ctx)
}

func unavailableSummary(cp contacts.Capability) string {
	return "연락처 서비스 사용 불가: " + cp.Reason
}

type contactEntry struct {
	phone   string
	name    string
	project string
	address string
	mapURL  string
	row     int
	at      time.Time
}

func (e contactEntry) values(result, existed string) []interface{} {
	return []interface{}{e.phone, e.name, e.project, e.address, e.mapURL, result, existed, e.row, e.at}
}

// loggedExisted keeps the existed flag of a persisted log row.
func loggedExisted(l *reconcile.Log, phone string) string {
	row, ok := l.Row(phone)
	if !ok {
		return ""
	}
	return l.Table().Cell(row, contactExistedCol).Text()
}

func contactNotes(address, mapURL string) string {
	var parts []string
	if address = strings.TrimSpace(address); address != "" {
		parts = append(parts, "주소: "+address)
	}
	if mapURL = strings.TrimSpace(mapURL); mapURL != "" {
		parts = append(parts, "지도: "+mapURL)
	}
	return strings.Join(parts, "\n")
}
