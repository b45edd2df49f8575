package profiles

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Windi-Fikriyansyah/devconnect_be/internal/apperr"
	"github.com/Windi-Fikriyansyah/devconnect_be/internal/models"
	"github.com/Windi-Fikriyansyah/devconnect_be/internal/testutil"
)

func seedStats(t *testing.T, gdb *gorm.DB) (dev, other *models.User) {
	t.Helper()
	dev = testutil.CreateUser(t, gdb, "dev@example.com", models.RoleDeveloper)
	other = testutil.CreateUser(t, gdb, "idle@example.com", models.RoleDeveloper)
	client := testutil.CreateUser(t, gdb, "client@example.com", models.RoleClient)

	devID := dev.Developer.ID
	for _, st := range []models.ProjectStatus{models.ProjectCompleted, models.ProjectCompleted, models.ProjectInProgress} {
		require.NoError(t, gdb.Create(&models.Project{
			ProjectName: "p",
			ClientID:    client.Client.ID,
			DevID:       &devID,
			Status:      st,
		}).Error)
	}
	for _, r := range []int{5, 4, 4} {
		require.NoError(t, gdb.Create(&models.Rating{
			ClientID:    client.Client.ID,
			DeveloperID: devID,
			Rating:      r,
		}).Error)
	}
	return dev, other
}

func TestListWithStatsDoesNotMultiplyRows(t *testing.T) {
	gdb := testutil.NewDB(t)
	dev, other := seedStats(t, gdb)
	svc := NewDeveloperService(gdb)

	list, err := svc.ListWithStats(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)

	byID := map[string]DeveloperStats{}
	for _, d := range list {
		byID[d.ID.String()] = d
	}

	busy := byID[dev.Developer.ID.String()]
	assert.Equal(t, "dev@example.com", busy.Email)
	assert.EqualValues(t, 2, busy.ProjectsCompleted)
	assert.EqualValues(t, 3, busy.TotalRatings)
	assert.InDelta(t, 4.33, busy.AverageRating, 0.001)

	idle := byID[other.Developer.ID.String()]
	assert.EqualValues(t, 0, idle.ProjectsCompleted)
	assert.Zero(t, idle.AverageRating)
}

func TestDeveloperGetAndUpdateMine(t *testing.T) {
	gdb := testutil.NewDB(t)
	dev, _ := seedStats(t, gdb)
	svc := NewDeveloperService(gdb)
	ctx := context.Background()

	got, err := svc.GetByUserID(ctx, dev.ID)
	require.NoError(t, err)
	assert.Equal(t, dev.Developer.ID, got.ID)

	bio := "  Go and Postgres  "
	rate := 55.5
	skills := []string{"go", " ", "sql"}
	upd, err := svc.UpdateMine(ctx, dev.ID, DeveloperUpdate{Bio: &bio, HourlyRate: &rate, Skills: &skills})
	require.NoError(t, err)
	assert.Equal(t, "Go and Postgres", upd.Bio)
	assert.Equal(t, 55.5, upd.HourlyRate)
	assert.Equal(t, []string{"go", "sql"}, []string(upd.Skills))

	neg := -1.0
	_, err = svc.UpdateMine(ctx, dev.ID, DeveloperUpdate{HourlyRate: &neg})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	all, err := svc.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestDeveloperNotFound(t *testing.T) {
	svc := NewDeveloperService(testutil.NewDB(t))
	client := testutil.CreateUser(t, svc.DB, "client@example.com", models.RoleClient)

	_, err := svc.GetByUserID(context.Background(), client.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestClientFilters(t *testing.T) {
	gdb := testutil.NewDB(t)
	svc := NewClientService(gdb)
	ctx := context.Background()

	a := testutil.CreateUser(t, gdb, "a@example.com", models.RoleClient)
	b := testutil.CreateUser(t, gdb, "b@example.com", models.RoleClient)

	acme, industry := "Acme Robotics", "Manufacturing"
	_, err := svc.UpdateMine(ctx, a.ID, ClientUpdate{CompanyName: &acme, Industry: &industry})
	require.NoError(t, err)
	globex, fin := "Globex", "Finance"
	_, err = svc.UpdateMine(ctx, b.ID, ClientUpdate{CompanyName: &globex, Industry: &fin})
	require.NoError(t, err)

	all, err := svc.List(ctx, ClientFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	byIndustry, err := svc.List(ctx, ClientFilter{Industry: "manufacturing"})
	require.NoError(t, err)
	require.Len(t, byIndustry, 1)
	assert.Equal(t, "a@example.com", byIndustry[0].Email)

	byCompany, err := svc.List(ctx, ClientFilter{Company: "LOBE"})
	require.NoError(t, err)
	require.Len(t, byCompany, 1)
	assert.Equal(t, "Globex", byCompany[0].CompanyName)

	got, err := svc.GetByID(ctx, a.Client.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acme Robotics", got.CompanyName)
}
