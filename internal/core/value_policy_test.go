package core

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodedTable(t *testing.T, csv string) *Table {
	t.Helper()
	res, err := DecodeTable([]byte(csv), DefaultLimits())
	require.NoError(t, err)
	require.NoError(t, RenameColumns(res.Table))
	SanitizeCells(res.Table)
	return res.Table
}

func TestApplyValuePolicy_RowAccounting(t *testing.T) {
	tbl := decodedTable(t, "id,score1,score2\n1,85,90\n2,92,\n3,,82")
	numeric, err := CheckNumericColumns(tbl, DefaultLimits())
	require.NoError(t, err)

	original := tbl.NumRows()
	removed, err := ApplyValuePolicy(tbl, numeric)
	require.NoError(t, err)

	assert.Equal(t, 3, original)
	assert.Equal(t, 2, removed)
	assert.Equal(t, 1, tbl.NumRows())
	assert.Equal(t, original-removed, tbl.NumRows())

	id, _ := tbl.Column("id")
	assert.Equal(t, 1.0, id.Cells[0].Num)
}

func TestApplyValuePolicy_InfinityBecomesMissing(t *testing.T) {
	tbl := decodedTable(t, "a,b,label\n1,inf,x\n2,3,y\n-inf,4,z\n5,6,w")
	numeric, err := CheckNumericColumns(tbl, DefaultLimits())
	require.NoError(t, err)

	removed, err := ApplyValuePolicy(tbl, numeric)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	for _, name := range numeric {
		col, _ := tbl.Column(name)
		for _, c := range col.Cells {
			assert.False(t, c.IsMissing())
			assert.False(t, math.IsInf(c.Num, 0))
		}
	}

	label, _ := tbl.Column("label")
	assert.Equal(t, "y", label.Cells[0].Str, "string columns stay row-aligned")
	assert.Equal(t, "w", label.Cells[1].Str)
}

func TestApplyValuePolicy_StringMissingDoesNotDropRows(t *testing.T) {
	tbl := decodedTable(t, "v,note\n1,\n2,ok")
	removed, err := ApplyValuePolicy(tbl, []string{"v"})
	require.NoError(t, err)
	assert.Equal(t, 0, removed)
	assert.Equal(t, 2, tbl.NumRows())
}

func TestApplyValuePolicy_AllRowsInvalid(t *testing.T) {
	tbl := decodedTable(t, "a,b\n1,\n,2\ninf,3")
	_, err := ApplyValuePolicy(tbl, []string{"a", "b"})
	assert.Equal(t, KindAllRowsInvalid, KindOf(err))
}

func TestCheckNumericColumns(t *testing.T) {
	tbl := decodedTable(t, "name,city\nann,oslo\nbob,rome")
	_, err := CheckNumericColumns(tbl, DefaultLimits())
	assert.Equal(t, KindNoNumericColumns, KindOf(err))

	tbl = decodedTable(t, "name,v\nann,1\nbob,2")
	lim := DefaultLimits()
	lim.MinNumericColumns = 2
	_, err = CheckNumericColumns(tbl, lim)
	assert.Equal(t, KindNoNumericColumns, KindOf(err))
}

func TestPrepareFeatures_DropsZeroVariance(t *testing.T) {
	tbl := decodedTable(t, "name,const,x,y\na,5,1,10\nb,5,2,20\nc,5,3,35")

	m, dropped, err := PrepareFeatures(tbl)
	require.NoError(t, err)

	assert.Equal(t, []string{"const"}, dropped)
	assert.Equal(t, []string{"x", "y"}, m.Columns)
	assert.NotContains(t, m.Columns, "const")
	require.Equal(t, 3, m.NumRows())
	assert.Equal(t, []float64{3, 35}, m.Rows[2])
	assert.Equal(t, 4, tbl.NumColumns(), "table keeps every column")
}

func TestPrepareFeatures_AllZeroVariance(t *testing.T) {
	tbl := decodedTable(t, "col1,col2,col3\n1,1,1\n1,1,1\n1,1,1")
	_, _, err := PrepareFeatures(tbl)
	assert.Equal(t, KindAllZeroVariance, KindOf(err))
}

func TestPrepareFeatures_NoNumericColumns(t *testing.T) {
	tbl := decodedTable(t, "a,b\nx,y")
	_, _, err := PrepareFeatures(tbl)
	assert.Equal(t, KindNoNumericColumns, KindOf(err))
}

func TestPrepareFeatures_SingleRowIsKept(t *testing.T) {
	tbl := decodedTable(t, "a,b\n1,2")
	m, dropped, err := PrepareFeatures(tbl)
	require.NoError(t, err)
	assert.Empty(t, dropped)
	assert.Equal(t, []string{"a", "b"}, m.Columns)
}

func TestPrepareFeatures_TinyVarianceIsKept(t *testing.T) {
	tbl := decodedTable(t, "a\n1\n1.0000000001\n1")
	m, dropped, err := PrepareFeatures(tbl)
	require.NoError(t, err)
	assert.Empty(t, dropped)
	assert.Equal(t, []string{"a"}, m.Columns)
}
