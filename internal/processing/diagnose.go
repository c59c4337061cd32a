package processing

import (
	"context"
	"fmt"
	"strings"

	"homestyle_sync/internal/blocks"
	"homestyle_sync/internal/config"
)

// Diagnose explains what the batch operations would see: block counts,
// name validity and the state of the Kakao key.
func (r *Runner) Diagnose(ctx context.Context) (Result, error) {
	t := r.startTally(OpDiagnose)

	main, scan, err := r.mainScan(ctx)
	if err != nil {
		return r.finish(t, Result{Summary: "❌ 진단 실패\n시트 오류: " + err.Error()}, false), nil
	}
	if scan.Empty() {
		summary := fmt.Sprintf("ℹ️ 진단 결과\n데이터가 없습니다.\n시작행: %d / 마지막행: %d", r.model.FirstRow, scan.LastRow())
		return r.finish(t, Result{Summary: summary}, true), nil
	}

	var total, valid, invalid, emptyName, closed, active int
	for {
		b, ok := scan.Next()
		if !ok {
			break
		}
		total++

		name := b.Cell(config.FieldName).Display
		if strings.TrimSpace(name) == "" {
			emptyName++
		}
		if r.model.Names.IsValid(name) {
			valid++
		} else {
			invalid++
		}
		if blocks.IsClosedBlock(b) {
			closed++
		}
		if blocks.IsActiveForExternalCheck(blocks.StatusInRow(main, b.Start)) {
			active++
		}
	}

	keyState := "OK"
	if r.geocoder == nil || !r.geocoder.HasKey() {
		keyState = "⚠️ 확인 필요"
	}
	sheetName := r.cfg.Sheets.Main
	if sheetName == "" {
		sheetName = "(미설정)"
	}

	lines := []string{
		"✅ 진단 요약",
		"- 시트명: " + sheetName,
		fmt.Sprintf("- 시작행/블록높이: %d / %d", r.model.FirstRow, scan.Height()),
		fmt.Sprintf("- 총 블록: %d", total),
		fmt.Sprintf("- 유효 프로젝트명: %d (무효 %d)", valid, invalid),
		fmt.Sprintf("- 프로젝트명 빈칸 블록: %d", emptyName),
		fmt.Sprintf("- 완료/취소 블록: %d", closed),
		fmt.Sprintf("- 진행 상태(드라이브 체크 대상): %d", active),
		"- 카카오키 상태: " + keyState,
	}
	t.counts["blocks"] = total
	return r.finish(t, Result{Summary: strings.Join(lines, "\n")}, true), nil
}
