package wizard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderExactlyOneActiveStep(t *testing.T) {
	w := loaded(t, moduleM1)
	require.NoError(t, w.ToggleModule("M1", true))
	require.NoError(t, w.Advance())

	for {
		view := Render(w)
		require.Len(t, view.Steps, 4)
		active := 0
		for _, s := range view.Steps {
			switch {
			case s.Number < view.Step:
				assert.Equal(t, IndicatorCompleted, s.State)
			case s.Number == view.Step:
				assert.Equal(t, IndicatorActive, s.State)
				active++
			default:
				assert.Equal(t, IndicatorPending, s.State)
			}
		}
		assert.Equal(t, 1, active)
		if w.Retreat() != nil {
			break
		}
	}
}

func TestRenderDoesNotMutate(t *testing.T) {
	w, _ := onModules(t, classC1)
	before := *w
	Render(w)
	Render(w)
	assert.Equal(t, before.step, w.step)
	assert.Equal(t, before.generation, w.generation)
	assert.Empty(t, w.DrainNotices())
}

func TestRenderGroupsByUnitInFirstAppearanceOrder(t *testing.T) {
	orphan := Module{ID: "M4", Code: "X", Name: "Orphan", UnitName: "  "}
	w := loaded(t, moduleM3, moduleM1, orphan, moduleM2)
	require.NoError(t, w.ToggleModule("M2", true))

	groups := Render(w).Catalog.Groups
	require.Len(t, groups, 3)
	assert.Equal(t, "UE2", groups[0].Unit)
	assert.Equal(t, "UE1", groups[1].Unit)
	assert.Equal(t, UnassignedUnit, groups[2].Unit)

	require.Len(t, groups[1].Modules, 2)
	assert.Equal(t, "M1", groups[1].Modules[0].ID)
	assert.False(t, groups[1].Modules[0].Selected)
	assert.Equal(t, "M2", groups[1].Modules[1].ID)
	assert.True(t, groups[1].Modules[1].Selected)
	assert.Equal(t, 30.0, groups[1].Modules[1].Hours)
}

func TestRenderCatalogHiddenWhileLoading(t *testing.T) {
	w, _ := onModules(t, classC1)
	view := Render(w)
	assert.Equal(t, CatalogLoading, view.Catalog.State)
	assert.Equal(t, "C1", view.Catalog.ClassID)
	assert.Empty(t, view.Catalog.Groups)
}

func TestRenderPanels(t *testing.T) {
	w := New(Config{})
	view := Render(w)
	assert.Nil(t, view.Teacher)
	assert.Nil(t, view.Class)
	assert.False(t, view.Controls.CanRetreat)
	assert.False(t, view.Controls.CanAdvance)

	w.SelectTeacher(teacherT1)
	w.SelectClass(classC1)
	view = Render(w)
	require.NotNil(t, view.Teacher)
	assert.Equal(t, "AN", view.Teacher.Initials)
	require.NotNil(t, view.Class)
	assert.Equal(t, "L1 - Informatique", view.Class.Details)
	assert.True(t, view.Controls.CanAdvance)
	assert.Nil(t, view.Review)
}

func TestRenderSelectionSummary(t *testing.T) {
	w := loaded(t, moduleM1, moduleM3)
	require.NoError(t, w.ToggleModule("M1", true))
	require.NoError(t, w.ToggleModule("M3", true))

	sel := Render(w).Selection
	assert.Equal(t, 2, sel.Count)
	assert.Equal(t, "42.5", sel.TotalHours)
	assert.Equal(t, 405000.0, sel.Totals.Cost)
	assert.Equal(t, NewMoney("").Amount(405000), sel.TotalCost)
}

func TestRenderReview(t *testing.T) {
	w := loaded(t, moduleM1, moduleM2)
	require.NoError(t, w.ToggleModule("M1", true))
	require.NoError(t, w.Advance())

	view := Render(w)
	require.NotNil(t, view.Review)
	assert.True(t, view.Controls.CanSubmit)
	assert.False(t, view.Controls.CanAdvance)
	assert.Equal(t, "T1", view.Review.Teacher.ID)
	assert.Equal(t, "C1", view.Review.Class.ID)
	require.Len(t, view.Review.Rows, 1)
	assert.Equal(t, "ALG1", view.Review.Rows[0].Code)
	assert.Equal(t, 280000.0, view.Review.Rows[0].Cost)
	assert.Equal(t, "20.0", view.Review.LectureHours)
	assert.Equal(t, "10.0", view.Review.TutorialHours)
	assert.Contains(t, view.Review.TotalCost, "FCFA")
}

func TestInitials(t *testing.T) {
	cases := map[string]string{
		"":                     "",
		"awa":                  "A",
		"Awa Ndiaye":           "AN",
		"  jean  paul  sartre": "JP",
		"élodie martin":        "ÉM",
	}
	for in, want := range cases {
		assert.Equal(t, want, Initials(in), in)
	}
}
