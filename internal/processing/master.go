package processing

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"
)

// MasterSync runs the initial project setup: address conversion, folders
// and contacts, reported together. An active-only drive check follows.
func (r *Runner) MasterSync(ctx context.Context) (Result, error) {
	t := r.startTally(OpMaster)

	if r.geocoder == nil || !r.geocoder.HasKey() {
		return r.finish(t, Result{Summary: "⚠️ 설정 오류\nKAKAO_API_KEY를 확인해주세요!"}, false), nil
	}

	addr, err := r.UpdateAddresses(ctx)
	if err != nil {
		return Result{Operation: OpMaster}, err
	}
	folders, err := r.CreateFolders(ctx, false)
	if err != nil {
		return Result{Operation: OpMaster}, err
	}
	contacts, err := r.SyncContacts(ctx)
	if err != nil {
		return Result{Operation: OpMaster}, err
	}

	var sb strings.Builder
	sb.WriteString("🎉 작업 완료 리포트\n\n")
	sb.WriteString("✅ [주소 변환]\n" + addr.Summary + "\n")
	if len(addr.FailedList) > 0 {
		sb.WriteString("❌ 실패:\n" + strings.Join(addr.FailedList, "\n") + "\n")
	}
	sb.WriteString("\n✅ [폴더/파일]\n" + folders.Summary + "\n")
	if len(folders.SuccessList) > 0 {
		sb.WriteString("\n✨ 신규 세팅:\n" + strings.Join(folders.SuccessList, "\n") + "\n")
	}
	if len(folders.FailedList) > 0 {
		sb.WriteString("\n❌ 실패:\n" + strings.Join(folders.FailedList, "\n") + "\n")
	}
	sb.WriteString("\n✅ [연락처]\n" + contacts.Summary + "\n")

	var failed []string
	failed = append(failed, addr.FailedList...)
	failed = append(failed, folders.FailedList...)
	failed = append(failed, contacts.FailedList...)

	if check, err := r.CheckDriveFiles(ctx, false, false); err != nil {
		Warning{Operation: OpMaster, Step: "drive check", Err: err}.Log()
	} else {
		log.Debug().Str("summary", check.Summary).Msg("Follow-up drive check finished")
	}

	return r.finish(t, Result{
		Summary:     sb.String(),
		FailedList:  failed,
		SuccessList: folders.SuccessList,
	}, true), nil
}
