package blocks

import (
	"testing"

	"homestyle_sync/internal/sheets"
)

func TestStatusInRowRankBeatsPosition(t *testing.T) {
	g := sheets.NewGrid("main")
	g.Seed(4, 3, sheets.Cell{Display: "진행"})
	g.Seed(4, 30, sheets.Cell{Display: "완료"})

	if got := StatusInRow(g, 4); got != StatusDone {
		t.Errorf("Expected 완료 by rank, got %q", got)
	}
}

func TestStatusInRowExactMatch(t *testing.T) {
	g := sheets.NewGrid("main")
	g.Seed(4, 5, sheets.Cell{Display: "완료예정"})
	g.Seed(4, 6, sheets.Cell{Display: " 진행 "})

	if got := StatusInRow(g, 4); got != StatusInProgress {
		t.Errorf("Expected 진행, got %q", got)
	}
}

func TestHeaderStatusFallback(t *testing.T) {
	m := testModel()
	g := sheets.NewGrid("main")
	seedBlock(g, 4, "1", "홍길동님", "")
	g.Seed(4, 12, sheets.Cell{Display: "대기"})

	b := m.Block(g, 4, 9)
	if got := HeaderStatus(b); got != StatusWaiting {
		t.Errorf("Expected fallback status 대기, got %q", got)
	}

	g.Seed(4, 7, sheets.Cell{Display: "디자인 작업"})
	if got := HeaderStatus(b); got != StatusDesignWork {
		t.Errorf("Expected fixed cell status, got %q", got)
	}
}

func TestIsClosedBlock(t *testing.T) {
	m := testModel()
	g := sheets.NewGrid("main")
	seedBlock(g, 4, "1", "홍길동님", "완료")
	seedBlock(g, 13, "2", "김님", "진행")
	g.Seed(13, 25, sheets.Cell{Display: "취소"})
	seedBlock(g, 22, "3", "이님", "진행")

	if !IsClosedBlock(m.Block(g, 4, 9)) {
		t.Error("Expected block with 완료 in G to be closed")
	}
	if !IsClosedBlock(m.Block(g, 13, 9)) {
		t.Error("Expected block with 취소 elsewhere in the row to be closed")
	}
	if IsClosedBlock(m.Block(g, 22, 9)) {
		t.Error("Expected in-progress block to be open")
	}
}

func TestStatusSets(t *testing.T) {
	for _, s := range []string{"진행", "실측대기", "디자인 작업", "엑셀 작업", "세팅 대기"} {
		if !IsActiveForExternalCheck(s) {
			t.Errorf("Expected %q to be active", s)
		}
	}
	for _, s := range []string{"완료", "취소", "대기", "", "세팅완료(에비대기)"} {
		if IsActiveForExternalCheck(s) {
			t.Errorf("Expected %q to be inactive", s)
		}
	}
	for _, s := range []string{"완료", "취소", "대기", "세팅 대기", "세팅완료(에비대기)"} {
		if !IsInactiveForDB(s) {
			t.Errorf("Expected %q to be excluded from DB sync", s)
		}
	}
	if !IsSettingPhase("세팅대기") || !IsSettingPhase(" 세팅 대기 ") || IsSettingPhase("세팅") {
		t.Error("Unexpected setting phase classification")
	}
	if !IsClosed(" 완료 ") || IsClosed("진행") {
		t.Error("Unexpected closed classification")
	}
}

func TestProjectNameInRow(t *testing.T) {
	g := sheets.NewGrid("main")
	g.Seed(4, 2, sheets.Cell{Display: "12"})
	g.Seed(4, 3, sheets.Cell{Display: "반멱살 홍님"})
	if got := ProjectNameInRow(g, 4); got != "반멱살 홍님" {
		t.Errorf("Expected pattern match, got %q", got)
	}

	g2 := sheets.NewGrid("main")
	g2.Seed(4, 2, sheets.Cell{Display: "12"})
	g2.Seed(4, 3, sheets.Cell{Display: "홍님"})
	if got := ProjectNameInRow(g2, 4); got != "12" {
		t.Errorf("Expected first non-empty cell, got %q", got)
	}
}
