package processing

import (
	"context"
	"testing"

	"homestyle_sync/internal/contacts"
	"homestyle_sync/internal/reconcile"
	"homestyle_sync/internal/sheets"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const contactLogSheet = "연락처_log"

func contactsFixture() *sheets.Grid {
	g := sheets.NewGrid(mainSheet)
	seedProject(g, 4, "1", "멱살반 김철수님", "진행")
	seed(g, 4, 6, "역삼동 719-8 (논현로 2)")
	seed(g, 6, 6, "101호")
	seed(g, 8, 6, "https://map.kakao.com/?q=a")
	seed(g, 6, 4, "연락처 010 1234 5678")

	seedProject(g, 13, "2", "멱살반 이영희님", "진행")
	seed(g, 15, 4, "(010)9876-5432")
	return g
}

func TestSyncContactsCreatesAndLogs(t *testing.T) {
	g := contactsFixture()
	dir := newFakeDirectory("010-9876-5432")
	book := sheets.NewMemoryWorkbook(g)
	r := newTestRunner(testConfig(), book, WithDirectory(dir))

	res, err := r.SyncContacts(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "생성 1 / 기존 1 / 로그스킵 0 / 건너뜀 0 / 실패 0", res.Summary)
	require.Len(t, dir.created, 1)
	assert.Equal(t, contacts.Contact{
		Name:    "멱살반 김철수님",
		Phone:   "010-1234-5678",
		Notes:   "주소: 역삼동 719-8 (논현로 2) 101호\n지도: https://map.kakao.com/?q=a",
		Address: "역삼동 719-8 (논현로 2) 101호",
	}, dir.created[0])

	logGrid := book.Grid(contactLogSheet)
	require.NotNil(t, logGrid)
	assert.Equal(t, 3, logGrid.LastRow())
	assert.Equal(t, "PHONE", logGrid.Cell(1, 1).Display)
	assert.Equal(t, "010-1234-5678", logGrid.Cell(2, 1).Display)
	assert.Equal(t, reconcile.ResultOK, logGrid.Cell(2, 6).Display)
	assert.Equal(t, "N", logGrid.Cell(2, 7).Display)
	assert.Equal(t, "010-9876-5432", logGrid.Cell(3, 1).Display)
	assert.Equal(t, "Y", logGrid.Cell(3, 7).Display)
	assert.Equal(t, "13", logGrid.Cell(3, 8).Display)
}

func TestSyncContactsSecondRunIsCached(t *testing.T) {
	g := contactsFixture()
	dir := newFakeDirectory("010-9876-5432")
	book := sheets.NewMemoryWorkbook(g)

	_, err := newTestRunner(testConfig(), book, WithDirectory(dir)).SyncContacts(context.Background())
	require.NoError(t, err)
	lookups := dir.lookups

	res, err := newTestRunner(testConfig(), book, WithDirectory(dir)).SyncContacts(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "생성 0 / 기존 0 / 로그스킵 2 / 건너뜀 0 / 실패 0", res.Summary)
	assert.Equal(t, lookups, dir.lookups, "logged phones must not be looked up again")

	logGrid := book.Grid(contactLogSheet)
	assert.Equal(t, 3, logGrid.LastRow(), "no duplicate log rows")
	for row := 2; row <= 3; row++ {
		assert.Equal(t, reconcile.ResultCachedSkip, logGrid.Cell(row, 6).Display)
	}
	assert.Equal(t, "N", logGrid.Cell(2, 7).Display)
	assert.Equal(t, "Y", logGrid.Cell(3, 7).Display)
}

func TestSyncContactsUnavailableDirectory(t *testing.T) {
	g := contactsFixture()
	dir := newFakeDirectory()
	dir.capability = contacts.Unavailable("People API disabled")
	book := sheets.NewMemoryWorkbook(g)

	res, err := newTestRunner(testConfig(), book, WithDirectory(dir)).SyncContacts(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "연락처 서비스 사용 불가: People API disabled", res.Summary)
	assert.Zero(t, dir.lookups)
	assert.Nil(t, book.Grid(contactLogSheet), "no log sheet is created when the directory is unavailable")
}

func TestSyncContactsSkipsAndFailures(t *testing.T) {
	g := contactsFixture()
	seedProject(g, 22, "3", "멱살반 박민수님", "완료")
	seed(g, 24, 4, "010-5555-6666")
	seedProject(g, 31, "4", "멱살반 무번호님", "진행")

	dir := newFakeDirectory()
	dir.lookupErrs["010-9876-5432"] = errBoom
	book := sheets.NewMemoryWorkbook(g)

	res, err := newTestRunner(testConfig(), book, WithDirectory(dir)).SyncContacts(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "생성 1 / 기존 0 / 로그스킵 0 / 건너뜀 2 / 실패 1", res.Summary)
	assert.Equal(t, []string{"2 멱살반 이영희님: boom"}, res.FailedList)

	logGrid := book.Grid(contactLogSheet)
	assert.Equal(t, 4, logGrid.LastRow())
	assert.Equal(t, reconcile.FailResult("boom"), logGrid.Cell(3, 6).Display)
	assert.Equal(t, "010-5555-6666", logGrid.Cell(4, 1).Display)
	assert.Equal(t, reconcile.SkipResult("closed"), logGrid.Cell(4, 6).Display)
}

func TestSyncContactsRepeatedPhoneKeepsQueuedRow(t *testing.T) {
	g := sheets.NewGrid(mainSheet)
	seedProject(g, 4, "1", "멱살반 김철수님", "진행")
	seed(g, 6, 4, "010-1234-5678")
	seedProject(g, 13, "2", "멱살반 김철수님", "진행")
	seed(g, 15, 4, "010 1234 5678")

	dir := newFakeDirectory()
	book := sheets.NewMemoryWorkbook(g)

	res, err := newTestRunner(testConfig(), book, WithDirectory(dir)).SyncContacts(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "생성 1 / 기존 0 / 로그스킵 1 / 건너뜀 0 / 실패 0", res.Summary)
	assert.Len(t, dir.created, 1)
	assert.Equal(t, 1, dir.lookups)

	logGrid := book.Grid(contactLogSheet)
	assert.Equal(t, 2, logGrid.LastRow())
	assert.Equal(t, reconcile.ResultOK, logGrid.Cell(2, 6).Display)
	assert.Equal(t, "N", logGrid.Cell(2, 7).Display)
	assert.Equal(t, "4", logGrid.Cell(2, 8).Display)
}

func TestSyncContactsNoPhoneSetting(t *testing.T) {
	for _, skipIfNoPhone := range []bool{true, false} {
		g := contactsFixture()
		seedProject(g, 22, "3", "멱살반 무번호님", "진행")

		cfg := testConfig()
		cfg.Contacts.SkipIfNoPhone = skipIfNoPhone
		dir := newFakeDirectory("010-9876-5432")
		book := sheets.NewMemoryWorkbook(g)

		res, err := newTestRunner(cfg, book, WithDirectory(dir)).SyncContacts(context.Background())
		require.NoError(t, err)

		assert.Equal(t, "생성 1 / 기존 1 / 로그스킵 0 / 건너뜀 1 / 실패 0", res.Summary, "skipIfNoPhone=%v", skipIfNoPhone)
		assert.Equal(t, 2, dir.lookups, "a block without a phone is never looked up")
		assert.Equal(t, 3, book.Grid(contactLogSheet).LastRow())
	}
}

func TestAuditContactsFlagsMissing(t *testing.T) {
	logGrid := sheets.NewGridFromValues(contactLogSheet, [][]interface{}{
		{"PHONE", "NAME", "PROJECT", "ADDRESS", "MAP_URL", "RESULT", "CONTACT_EXISTED", "SOURCE_ROW", "SYNC_AT"},
		{"010-1111-2222", "a", "1 a", "", "", "ok", "Y", 4, ""},
		{"010-3333-4444", "b", "2 b", "", "", "ok", "N", 13, ""},
	})
	dir := newFakeDirectory("010-1111-2222")
	book := sheets.NewMemoryWorkbook(logGrid)

	res, err := newTestRunner(testConfig(), book, WithDirectory(dir)).AuditContacts(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "검증 1 / 누락 1 / 실패 0", res.Summary)
	assert.Equal(t, "ok", logGrid.Cell(2, 6).Display)
	assert.Equal(t, reconcile.ResultMissingInContacts, logGrid.Cell(3, 6).Display)
	assert.Equal(t, "N", logGrid.Cell(3, 7).Display)
	assert.Equal(t, 3, logGrid.LastRow(), "audit never removes rows")
}
