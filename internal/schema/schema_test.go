package schema

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/ZanzyTHEbar/loan-decision/internal/errors"
	"github.com/ZanzyTHEbar/loan-decision/internal/model"
)

const defaultFingerprint = "sha256:3fafafaa90e43cbfba370fd78893045b19e658bf937a980e145b80b3e0a53987"

const reducedSchemaYAML = `
version: loan-reduced
features:
  - name: no_of_dependents
    kind: continuous
    non_negative: true
    integer: true
  - name: income_annum
    kind: continuous
    non_negative: true
  - name: loan_amount
    kind: continuous
    non_negative: true
  - name: loan_term
    kind: continuous
    min: 1
  - name: cibil_score
    kind: continuous
    min: 300
    max: 900
  - name: education
    kind: categorical
    categories:
      - {label: Graduate, code: 0}
      - {label: Not Graduate, code: 1}
`

func TestDefault_Order(t *testing.T) {
	s := Default()

	assert.Equal(t, "loan-v1", s.Version)
	assert.Equal(t, []string{
		"no_of_dependents",
		"education",
		"self_employed",
		"income_annum",
		"loan_amount",
		"loan_term",
		"cibil_score",
		"residential_assets_value",
		"commercial_assets_value",
		"luxury_assets_value",
		"bank_asset_value",
	}, s.Names())

	cibil, pos, ok := s.Lookup("cibil_score")
	require.True(t, ok)
	assert.Equal(t, 6, pos)
	require.NotNil(t, cibil.Min)
	require.NotNil(t, cibil.Max)
	assert.Equal(t, 300.0, *cibil.Min)
	assert.Equal(t, 900.0, *cibil.Max)
}

func TestDefault_Fingerprint(t *testing.T) {
	assert.Equal(t, defaultFingerprint, Default().Fingerprint())
}

func TestLookup_AliasesAndCase(t *testing.T) {
	s := Default()

	tests := []struct {
		key  string
		want string
	}{
		{"res_assets", "residential_assets_value"},
		{"CIBIL", "cibil_score"},
		{"  Income ", "income_annum"},
		{"dependents", "no_of_dependents"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			e, _, ok := s.Lookup(tt.key)
			require.True(t, ok)
			assert.Equal(t, tt.want, e.Name)
		})
	}

	_, pos, ok := s.Lookup("marital_status")
	assert.False(t, ok)
	assert.Equal(t, -1, pos)
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	s := Default()

	for _, f := range s.Features {
		if f.Kind != KindCategorical {
			continue
		}
		for _, label := range f.Labels() {
			code, err := s.Encode(f.Name, label)
			require.NoError(t, err)
			back, err := s.Decode(f.Name, code)
			require.NoError(t, err)
			assert.Equal(t, label, back)
		}
	}

	code, err := s.Encode("education", "Not Graduate")
	require.NoError(t, err)
	assert.Equal(t, 1, code)

	_, err = s.Encode("education", "Married")
	assert.Error(t, err)
	_, err = s.Encode("loan_amount", "Graduate")
	assert.Error(t, err)
	_, err = s.Decode("self_employed", 7)
	assert.Error(t, err)
}

func TestParse_ReducedVariant(t *testing.T) {
	s, err := Parse([]byte(reducedSchemaYAML))
	require.NoError(t, err)

	assert.Equal(t, 6, s.Len())
	assert.Equal(t, "education", s.Names()[5])
	assert.NotEqual(t, defaultFingerprint, s.Fingerprint())
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "schema.yaml")
	require.NoError(t, os.WriteFile(path, []byte(reducedSchemaYAML), 0o600))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "loan-reduced", s.Version)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	s, err = LoadOrDefault("")
	require.NoError(t, err)
	assert.Equal(t, 11, s.Len())
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"no features", "version: x\nfeatures: []\n"},
		{"duplicate name", `
features:
  - {name: a, kind: continuous}
  - {name: A, kind: continuous}
`},
		{"alias collides with name", `
features:
  - {name: a, kind: continuous}
  - {name: b, kind: continuous, aliases: [a]}
`},
		{"unknown kind", `
features:
  - {name: a, kind: ordinal}
`},
		{"min above max", `
features:
  - {name: a, kind: continuous, min: 10, max: 1}
`},
		{"categorical without categories", `
features:
  - {name: a, kind: categorical}
`},
		{"duplicate code", `
features:
  - name: a
    kind: categorical
    categories: [{label: x, code: 0}, {label: y, code: 0}]
`},
		{"labels equal after folding", `
features:
  - name: a
    kind: categorical
    categories: [{label: "Yes", code: 0}, {label: " yes ", code: 1}]
`},
		{"continuous with categories", `
features:
  - name: a
    kind: continuous
    categories: [{label: x, code: 0}]
`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestFingerprint_Sensitivity(t *testing.T) {
	base := Default()

	swapped := Default()
	swapped.Features[3], swapped.Features[4] = swapped.Features[4], swapped.Features[3]
	assert.NotEqual(t, base.Fingerprint(), swapped.Fingerprint())

	recoded := Default()
	recoded.Features[1].Categories = []Category{{Label: "Graduate", Code: 1}, {Label: "Not Graduate", Code: 0}}
	assert.NotEqual(t, base.Fingerprint(), recoded.Fingerprint())

	relabelled := Default()
	relabelled.Features[0].Label = "Dependents"
	assert.Equal(t, base.Fingerprint(), relabelled.Fingerprint())
}

func TestMatchCategory(t *testing.T) {
	edu, _, ok := Default().Lookup("education")
	require.True(t, ok)

	tests := []struct {
		raw      string
		wantCode int
		wantOK   bool
	}{
		{"Graduate", 0, true},
		{"graduate", 0, true},
		{"  NOT   graduate ", 1, true},
		{"Ｇｒａｄｕａｔｅ", 0, true},
		{"Married", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			c, ok := edu.MatchCategory(tt.raw)
			assert.Equal(t, tt.wantOK, ok)
			if ok {
				assert.Equal(t, tt.wantCode, c.Code)
			}
		})
	}

	c, ok := edu.CategoryForCode(1)
	require.True(t, ok)
	assert.Equal(t, "Not Graduate", c.Label)
}

func TestFeatureRecord(t *testing.T) {
	s, err := Parse([]byte(reducedSchemaYAML))
	require.NoError(t, err)

	values := []float64{2, 500000, 200000, 10, 750, 0}
	r, err := NewRecord(s, values)
	require.NoError(t, err)

	values[0] = 99
	assert.Equal(t, 2.0, r.Values()[0])

	got := r.Values()
	got[1] = -1
	assert.Equal(t, 500000.0, r.Values()[1])

	v, ok := r.Value("cibil_score")
	require.True(t, ok)
	assert.Equal(t, 750.0, v)

	same, err := NewRecord(s, []float64{2, 500000, 200000, 10, 750, 0})
	require.NoError(t, err)
	assert.Equal(t, r.Key(), same.Key())

	other, err := NewRecord(s, []float64{2, 500000, 200000, 10, 751, 0})
	require.NoError(t, err)
	assert.NotEqual(t, r.Key(), other.Key())

	_, err = NewRecord(s, []float64{1, 2, 3})
	assert.Error(t, err)
	_, err = NewRecord(s, []float64{2, math.Inf(1), 200000, 10, 750, 0})
	assert.Error(t, err)
}

func TestCheckModel(t *testing.T) {
	s := Default()

	tests := []struct {
		name    string
		sig     model.Signature
		strict  bool
		wantErr bool
	}{
		{name: "fingerprint and names agree", sig: model.Signature{Width: 11, FeatureNames: s.Names(), SchemaFingerprint: defaultFingerprint}},
		{name: "names only", sig: model.Signature{Width: 11, FeatureNames: s.Names()}, strict: true},
		{name: "width only, lenient", sig: model.Signature{Width: 11}},
		{name: "width only, strict", sig: model.Signature{Width: 11}, strict: true, wantErr: true},
		{name: "width differs", sig: model.Signature{Width: 6}, wantErr: true},
		{name: "fingerprint differs", sig: model.Signature{Width: 11, SchemaFingerprint: "sha256:00"}, wantErr: true},
		{
			name: "names reordered",
			sig: func() model.Signature {
				names := s.Names()
				names[0], names[1] = names[1], names[0]
				return model.Signature{Width: 11, FeatureNames: names}
			}(),
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.CheckModel(tt.sig, tt.strict)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, apperrors.IsCategory(err, apperrors.CategorySchemaMismatch))
			assert.True(t, apperrors.IsFatal(err))
		})
	}
}

func TestCheckModel_ShippedArtifacts(t *testing.T) {
	s := Default()
	for _, name := range []string{"loan_logistic.json", "loan_forest.json"} {
		t.Run(name, func(t *testing.T) {
			m, err := model.Load(filepath.Join("..", "..", "models", name))
			require.NoError(t, err)
			assert.NoError(t, s.CheckModel(m.Signature(), true))
		})
	}
}
