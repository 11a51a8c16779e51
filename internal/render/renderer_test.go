package render

import (
	"bytes"
	"context"
	"errors"
	"image/color"
	"image/png"
	"testing"
	"time"

	"github.com/smallbiznis/countrystat/internal/clock"
	"github.com/smallbiznis/countrystat/internal/country/countrytest"
	"github.com/smallbiznis/countrystat/internal/country/domain"
	"github.com/smallbiznis/countrystat/internal/country/repository"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type failingStore struct{}

func (failingStore) Write(context.Context, []byte) error { return errors.New("disk full") }

func (failingStore) Read(context.Context) ([]byte, time.Time, error) {
	return nil, time.Time{}, ErrArtifactNotFound
}

func newTestRenderer(t *testing.T, store ArtifactStore) (*Renderer, *gorm.DB) {
	t.Helper()
	db := countrytest.OpenDB(t)
	r := New(Params{
		DB:         db,
		Log:        zap.NewNop(),
		Repo:       repository.Provide(),
		StatusRepo: repository.ProvideStatus(),
		Clock:      clock.NewFakeClock(time.Date(2025, 10, 22, 18, 0, 0, 0, time.UTC)),
		Store:      store,
		Fonts:      LoadFonts(afero.NewMemMapFs(), "/missing/regular.ttf", "/missing/bold.ttf", nil),
	})
	return r, db
}

func TestRenderWritesSummaryPNG(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := NewFileStore(fs, "cache/summary.png")
	r, db := newTestRenderer(t, store)
	countrytest.Seed(t, db, countrytest.Node(t),
		domain.Country{Name: "Nigeria", EstimatedGDP: 900},
		domain.Country{Name: "Ghana", EstimatedGDP: 300},
	)

	ctx := context.Background()
	_, _, err := r.Image(ctx)
	require.ErrorIs(t, err, ErrArtifactNotFound)

	require.NoError(t, r.Render(ctx))

	data, _, err := r.Image(ctx)
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, Width, img.Bounds().Dx())
	assert.Equal(t, Height, img.Bounds().Dy())

	r0, g0, b0, _ := img.At(0, 0).RGBA()
	assert.Equal(t, [3]uint32{0xffff, 0xffff, 0xffff}, [3]uint32{r0, g0, b0})

	inked := false
	for x := 50; x < 400 && !inked; x++ {
		for y := 30; y < 70; y++ {
			if img.At(x, y) != (color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}) {
				inked = true
				break
			}
		}
	}
	assert.True(t, inked, "expected title text to be drawn")

	leftovers, err := afero.Glob(fs, "cache/.summary-*")
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestRenderFailureWrapsErrRender(t *testing.T) {
	r, _ := newTestRenderer(t, failingStore{})

	err := r.Render(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRender)
}

func TestReportIsPDF(t *testing.T) {
	r, db := newTestRenderer(t, NewFileStore(afero.NewMemMapFs(), "summary.png"))
	countrytest.Seed(t, db, countrytest.Node(t), domain.Country{Name: "France", EstimatedGDP: 1200})

	doc, err := r.Report(context.Background())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(doc, []byte("%PDF")))
}

func TestLoadFontsFallsBack(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/fonts/broken.ttf", []byte("not a font"), 0o644))

	fonts := LoadFonts(fs, "/fonts/broken.ttf", "/fonts/none.ttf", zap.NewNop())
	require.NotNil(t, fonts.Title)
	require.NotNil(t, fonts.Text)
	require.NotNil(t, fonts.Small)
	assert.Greater(t, fonts.Title.Metrics().Height, fonts.Small.Metrics().Height)

	img := Draw(Summary{TotalCountries: 1}, BasicFonts())
	assert.Equal(t, Width, img.Bounds().Dx())
}

func TestFileStoreOverwrites(t *testing.T) {
	store := NewFileStore(afero.NewMemMapFs(), "/var/cache/summary.png")
	ctx := context.Background()

	require.NoError(t, store.Write(ctx, []byte("one")))
	require.NoError(t, store.Write(ctx, []byte("two")))

	data, _, err := store.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, []byte("two"), data)
}
