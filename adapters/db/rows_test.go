package db

import (
	"testing"

	"phaengine/domain/core"
	"phaengine/domain/quantity"
	"phaengine/domain/receptor"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentRowsRoundTrip(t *testing.T) {
	v := 2.5
	doc := &quantity.Document{
		Name: "plant",
		Constants: []quantity.ConstantRecord{{
			ID: "c1", Name: "g",
			Quantity: quantity.Record{ID: "cq", Kind: quantity.KindUser},
		}},
		Tables: []quantity.TableRecord{{ID: "t1", Name: "exposure"}},
		Quantities: []quantity.Record{
			{ID: "q1", Name: "leak", Kind: quantity.KindUser, Unit: "/yr",
				Scenarios: map[core.ReceptorID]quantity.ScenarioRecord{receptor.DefaultID: {Value: &v, Status: quantity.StatusOK}}},
			{ID: "q2", Name: "double", Kind: quantity.KindCalc},
		},
	}

	rows, err := DocumentRows(doc)
	require.NoError(t, err)
	require.Len(t, rows.Quantities, 2)
	assert.Equal(t, 1, rows.Quantities[1].Position)
	assert.Equal(t, "Calc", rows.Quantities[1].Kind)
	assert.Equal(t, "/yr", rows.Quantities[0].Unit)

	back := &quantity.Document{Name: doc.Name}
	require.NoError(t, DecodeRows(back, rows.Constants, rows.Tables, rows.Quantities))
	assert.Equal(t, doc.Constants, back.Constants)
	assert.Equal(t, doc.Quantities, back.Quantities)
	assert.Equal(t, "exposure", back.Tables[0].Name)
}

func TestDecodeRowsRejectsBrokenJSON(t *testing.T) {
	err := DecodeRows(&quantity.Document{}, nil, nil, []RecordRow{{ID: "q1", Record: "{"}})
	assert.ErrorContains(t, err, "q1")
}

func TestExtraReceptors(t *testing.T) {
	in := []receptor.Receptor{{ID: receptor.DefaultID}, {ID: "public"}}
	assert.Equal(t, []receptor.Receptor{{ID: "public"}}, ExtraReceptors(in))
}
