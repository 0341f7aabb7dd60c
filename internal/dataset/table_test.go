package dataset

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const surveyCSV = `subject_id,age,gender,gose,phq9,eq5d_index,enrolled
S001,34,1,7,4,0.85,2021-03-01
S002,51,2,5,11,0.62,2021-03-02
S003,27,1,8,2,0.91,2021-03-04
S004,63,2,4,16,0.40,2021-03-09
S005,45,1,6,NA,0.71,2021-03-11
S006,38,2,7,7,,2021-03-15
`

func loadSurvey(t *testing.T) *Table {
	t.Helper()
	table, err := LoadCSVReader("survey", strings.NewReader(surveyCSV))
	require.NoError(t, err)
	return table
}

func TestLoadCSVReader(t *testing.T) {
	table := loadSurvey(t)

	assert.Equal(t, "survey", table.Name())
	assert.Equal(t, 6, table.Rows())
	assert.Equal(t,
		[]string{"subject_id", "age", "gender", "gose", "phq9", "eq5d_index", "enrolled"},
		table.Columns())
}

func TestSelect_DropsMissingColumns(t *testing.T) {
	table := loadSurvey(t)

	// Wishlist contains columns the dataset does not have; they are dropped
	// and the surviving order follows the request.
	sub, err := table.Select("phq9", "gad7", "age", "moca")
	require.NoError(t, err)
	assert.Equal(t, []string{"phq9", "age"}, sub.Columns())
}

func TestSelect_NothingSurvives(t *testing.T) {
	table := loadSurvey(t)

	_, err := table.Select("gad7", "moca")
	assert.Error(t, err)
}

func TestRelabel_DoesNotAlterValues(t *testing.T) {
	table := loadSurvey(t)

	before, err := table.NumericColumn("phq9")
	require.NoError(t, err)

	require.NoError(t, table.Relabel("phq9", "Depression (PHQ-9)"))
	assert.Equal(t, "Depression (PHQ-9)", table.Label("phq9"))

	after, err := table.NumericColumn("phq9")
	require.NoError(t, err)
	for i := range before {
		if math.IsNaN(before[i]) {
			assert.True(t, math.IsNaN(after[i]))
			continue
		}
		assert.Equal(t, before[i], after[i])
	}
}

func TestRelabel_UnknownColumn(t *testing.T) {
	table := loadSurvey(t)
	assert.Error(t, table.Relabel("nope", "Nope"))
}

func TestLabel_FallsBackToName(t *testing.T) {
	table := loadSurvey(t)
	assert.Equal(t, "age", table.Label("age"))

	require.NoError(t, table.Relabel("age", "Age (years)"))
	assert.Equal(t, []string{"Age (years)", "gose"}, table.Labels("age", "gose"))
}

func TestSelect_CarriesLabels(t *testing.T) {
	table := loadSurvey(t)
	require.NoError(t, table.Relabel("gose", "Injury severity (GOSE)"))

	sub, err := table.Select("gose", "age")
	require.NoError(t, err)
	assert.Equal(t, "Injury severity (GOSE)", sub.Label("gose"))
}

func TestRecode(t *testing.T) {
	table := loadSurvey(t)

	require.NoError(t, table.Recode("gender", map[string]string{"1": "Male", "2": "Female"}))

	values, err := table.StringColumn("gender")
	require.NoError(t, err)
	assert.Equal(t, []string{"Male", "Female", "Male", "Female", "Male", "Female"}, values)
}

func TestNumericColumn_MissingBecomesNaN(t *testing.T) {
	table := loadSurvey(t)

	phq9, err := table.NumericColumn("phq9")
	require.NoError(t, err)
	require.Len(t, phq9, 6)
	assert.Equal(t, 4.0, phq9[0])
	assert.True(t, math.IsNaN(phq9[4]), "NA cell should parse as NaN")

	eq5d, err := table.NumericColumn("eq5d_index")
	require.NoError(t, err)
	assert.True(t, math.IsNaN(eq5d[5]), "empty cell should parse as NaN")
}

func TestKind(t *testing.T) {
	table := loadSurvey(t)
	require.NoError(t, table.Recode("gender", map[string]string{"1": "Male", "2": "Female"}))

	assert.Equal(t, KindNumeric, table.Kind("age"))
	assert.Equal(t, KindNumeric, table.Kind("eq5d_index"))
	assert.Equal(t, KindCategorical, table.Kind("gender"))
	assert.Equal(t, KindDatetime, table.Kind("enrolled"))
}

func TestKind_MixedColumnMajorityNumeric(t *testing.T) {
	// A stray token forces gota to type the column as string; the cells
	// that do parse as numbers still decide the kind by majority.
	table, err := LoadRecords("mixed", [][]string{
		{"subject_id", "score"},
		{"S001", "12"},
		{"S002", "9"},
		{"S003", "refused"},
		{"S004", "15"},
		{"S005", "11"},
	})
	require.NoError(t, err)

	assert.Equal(t, KindNumeric, table.Kind("score"))
	assert.Contains(t, table.NumericColumns("score"), "score")
}

func TestLevels(t *testing.T) {
	table := loadSurvey(t)

	levels := table.Levels("gender")
	assert.Equal(t, map[string]int{"1": 3, "2": 3}, levels)
}

func TestSchema(t *testing.T) {
	table := loadSurvey(t)
	require.NoError(t, table.Relabel("gose", "Injury severity (GOSE)"))

	specs := table.Schema()
	require.Len(t, specs, 7)
	assert.Equal(t, "gose", specs[3].Name)
	assert.Equal(t, "Injury severity (GOSE)", specs[3].Label)
	assert.Equal(t, KindNumeric, specs[3].Kind)
}

func TestNumericColumns(t *testing.T) {
	table := loadSurvey(t)

	numeric := table.NumericColumns("age", "gender", "phq9", "missing_col")
	// gender is low-cardinality numeric codes; gota types it as numeric
	assert.Contains(t, numeric, "age")
	assert.Contains(t, numeric, "phq9")
	assert.NotContains(t, numeric, "missing_col")
}
