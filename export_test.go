package contracts

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestExportXLSX(t *testing.T) {
	pages := append(append([]string{}, shortContract...),
		"Fees are payable as follows.\n\n"+
			"Milestone    Amount      Due Date\n"+
			"Kickoff      $10,000     2024-01-15\n"+
			"Launch       $20,000     2024-06-01\n")
	x := quietExtractor(&oracle{truth: shortTruth})
	a, err := x.ExtractDocument(context.Background(), DocumentFromPages(pages), Selection{Tier: TierEssential})
	require.NoError(t, err)
	require.NotNil(t, a.PaymentSchedule)

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, a, x.Taxonomy()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Fields", "Payment Schedule"}, f.GetSheetList())

	rows, err := f.GetRows("Fields")
	require.NoError(t, err)
	require.Len(t, rows, 10)
	assert.Equal(t, []string{"Category", "Field", "Value", "Normalized", "Status", "Page", "Evidence"}, rows[0])

	byField := map[string][]string{}
	for _, r := range rows[1:] {
		byField[r[1]] = r
	}
	eff := byField["effective_date"]
	require.NotNil(t, eff)
	assert.Equal(t, "dates_parties", eff[0])
	assert.Equal(t, "January 1, 2024", eff[2])
	assert.Equal(t, "2024-01-01", eff[3])
	assert.Equal(t, "grounded", eff[4])
	assert.Equal(t, "1", eff[5])
	assert.Equal(t, "USD 120000.00", byField["total_contract_value"][3])
	assert.Equal(t, "Acme Corp; Globex LLC", byField["parties"][3])

	sched, err := f.GetRows("Payment Schedule")
	require.NoError(t, err)
	require.Len(t, sched, 3)
	assert.Equal(t, []string{"Milestone", "Amount", "Due Date"}, sched[0])
	assert.Equal(t, "Kickoff", sched[1][0])
	assert.Equal(t, "10000", sched[1][1])
	assert.Equal(t, "2024-06-01", sched[2][2])
}

func TestExportXLSX_WithoutSchedule(t *testing.T) {
	a, err := NewForTesting(map[string]any{"currency": "USD"}).
		ExtractText(context.Background(), "All fees are in USD.", Selection{Fields: []string{"currency", "governing_law"}})
	require.NoError(t, err)

	b, err := ExportXLSX(a, DefaultTaxonomy())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(b))
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"Fields"}, f.GetSheetList())

	rows, err := f.GetRows("Fields")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "not_found", rows[2][4])
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abc…", truncate("abcdefgh", 4))
	assert.Equal(t, "h…", truncate("héllo", 3))
	assert.Equal(t, "anything", truncate("anything", 0))
}
