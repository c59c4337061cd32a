package processing

import (
	"context"
	"errors"
	"fmt"

	"homestyle_sync/internal/blocks"
	"homestyle_sync/internal/config"
	"homestyle_sync/internal/geocode"
	"homestyle_sync/internal/metrics"

	"github.com/rs/zerolog/log"
)

// UpdateAddresses geocodes every unresolved project address and writes the
// display address, the address remainder and a map link back to the block.
func (r *Runner) UpdateAddresses(ctx context.Context) (Result, error) {
	t := r.startTally(OpAddress)

	if r.geocoder == nil || !r.geocoder.HasKey() {
		log.Warn().Msg("KAKAO_API_KEY not configured, skipping address conversion")
		return r.finish(t, Result{Summary: "KAKAO_API_KEY 미설정"}, false), nil
	}

	_, scan, err := r.mainScan(ctx)
	if err != nil {
		return Result{Operation: OpAddress}, err
	}
	if scan.Empty() {
		return r.finish(t, Result{Summary: noData}, true), nil
	}

	policy := blocks.Policy{
		blocks.SkipInvalidName(r.model.Names),
		blocks.SkipClosed(),
	}

	for {
		b, ok := scan.Next()
		if !ok {
			break
		}
		if d := policy.Evaluate(b); d.Skip {
			if d.Counted {
				t.skip(b, d.Reason)
			}
			continue
		}

		raw := b.Text(config.FieldAddress)
		if raw == "" {
			continue
		}
		if geocode.IsResolved(raw, b.Text(config.FieldMap)) {
			t.skip(b, "already_resolved")
			continue
		}

		base, extra := geocode.SplitAddressExtra(raw)
		if base == "" {
			continue
		}

		r.metrics.IncCall("kakao")
		res, err := r.geocoder.Search(ctx, base)
		if err != nil {
			t.fail(b, b.Label()+" "+addressFailure(err), err)
			continue
		}

		display := geocode.DisplayAddress(res)
		b.Set(config.FieldAddress, display)
		if extra != "" && b.Text(config.FieldAddressExtra) == "" {
			b.Set(config.FieldAddressExtra, extra)
		}
		b.Set(config.FieldMap, geocode.MapURL(r.cfg.Kakao.MapURLTemplate, display))
		t.add(metrics.OutcomeSuccess)

		log.Info().
			Int("row", b.Start).
			Str("project", b.Label()).
			Str("address", display).
			Msg("Converted address")
	}

	summary := fmt.Sprintf("신규 %d건 / 이미완료 %d건 / 실패 %d건",
		t.n(metrics.OutcomeSuccess), t.n(metrics.OutcomeSkip), t.n(metrics.OutcomeFail))
	return r.finish(t, Result{Summary: summary}, true), nil
}

func addressFailure(err error) string {
	var apiErr *geocode.APIError
	switch {
	case errors.Is(err, geocode.ErrNotFound):
		return "(주소 불분명)"
	case errors.As(err, &apiErr):
		return fmt.Sprintf("(API 응답코드 %d)", apiErr.StatusCode)
	default:
		return fmt.Sprintf("(시스템 오류: %v)", err)
	}
}
