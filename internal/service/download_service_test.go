package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/templatestore/license-service/internal/audit"
	"github.com/templatestore/license-service/internal/domain/download"
	"github.com/templatestore/license-service/internal/domain/license"
	"github.com/templatestore/license-service/internal/filestore"
	"github.com/templatestore/license-service/internal/ierr"
	"golang.org/x/sync/errgroup"
	"pgregory.net/rapid"
)

func TestCreateDownload_Success(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id := f.seedLicense(3, 0, time.Now().Add(time.Hour))

	before := time.Now().UTC()
	res, err := f.dl.CreateDownload(ctx, f.downloadRequest())
	require.NoError(t, err)

	assert.True(t, download.VerifyToken(res.Token))
	assert.Equal(t, "https://drive.google.com/uc?export=download&id=drive-file-1", res.DownloadURL)
	assert.WithinDuration(t, before.Add(testTokenTTL), res.ExpiresAt, 5*time.Second)
	assert.Equal(t, "Aurora Landing", res.Template.Title)
	assert.Equal(t, 2, res.RemainingDownloads)
	assert.Equal(t, 1, f.mustLicense(t, id).DownloadsCount)

	stored, err := f.store.Downloads().FindByToken(ctx, res.Token)
	require.NoError(t, err)
	assert.False(t, stored.IsExpired)
	assert.Equal(t, id, stored.LicenseID)
	assert.Equal(t, "203.0.113.7", stored.IPAddress)

	assert.Equal(t, []audit.Action{audit.ActionDownloadCreated}, f.tasks.actions())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.DownloadsCreated))
}

func TestCreateDownload_Unlimited(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id := f.seedLicense(license.Unlimited, 0, time.Now().Add(time.Hour))

	for i := 0; i < 25; i++ {
		res, err := f.dl.CreateDownload(ctx, f.downloadRequest())
		require.NoError(t, err)
		assert.Equal(t, license.Unlimited, res.RemainingDownloads)
	}
	assert.Equal(t, 25, f.mustLicense(t, id).DownloadsCount)
}

func TestCreateDownload_Denials(t *testing.T) {
	ctx := context.Background()

	t.Run("missing template", func(t *testing.T) {
		f := newFixture(t)
		templateID := uuid.New()
		f.store.PutLicense(&license.License{
			UserID: f.userID, TemplateID: templateID, OrderID: uuid.New(),
			Status: license.StatusActive, MaxDownloads: 3, ValidUntil: time.Now().Add(time.Hour),
		})

		_, err := f.dl.CreateDownload(ctx, DownloadRequest{UserID: f.userID, TemplateID: templateID})
		assert.ErrorIs(t, err, ierr.ErrNoActiveLicense)
	})

	t.Run("file unavailable leaves quota", func(t *testing.T) {
		f := newFixture(t)
		f.template.Slug = "no-file-configured"
		f.store.PutTemplate(f.template)
		id := f.seedLicense(3, 0, time.Now().Add(time.Hour))

		_, err := f.dl.CreateDownload(ctx, f.downloadRequest())
		assert.ErrorIs(t, err, ierr.ErrFileUnavailable)
		assert.Equal(t, 0, f.mustLicense(t, id).DownloadsCount)
	})

	t.Run("expired license", func(t *testing.T) {
		f := newFixture(t)
		f.seedLicense(3, 0, time.Now().Add(-time.Second))

		_, err := f.dl.CreateDownload(ctx, f.downloadRequest())
		assert.ErrorIs(t, err, ierr.ErrLicenseExpired)
		assert.Contains(t, f.tasks.actions(), audit.ActionDownloadDenied)
	})
}

func TestCreateDownload_TokenCollisionRetries(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id := f.seedLicense(5, 0, time.Now().Add(time.Hour))

	taken, err := download.GenerateToken(time.Now())
	require.NoError(t, err)
	_, err = f.store.Downloads().CreateWithQuota(ctx, &download.Download{LicenseID: id, DownloadToken: taken}, time.Now())
	require.NoError(t, err)

	calls := 0
	f.dl.newToken = func(now time.Time) (string, error) {
		calls++
		if calls <= 2 {
			return taken, nil
		}
		return download.GenerateToken(now)
	}

	res, err := f.dl.CreateDownload(ctx, f.downloadRequest())
	require.NoError(t, err)
	assert.NotEqual(t, taken, res.Token)
	assert.Equal(t, 3, calls)
	assert.Equal(t, 2, f.mustLicense(t, id).DownloadsCount)
	assert.Equal(t, 2.0, testutil.ToFloat64(f.metrics.TokenCollisions))
}

func TestCreateDownload_TokenAttemptsExhausted(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id := f.seedLicense(5, 0, time.Now().Add(time.Hour))

	_, err := f.store.Downloads().CreateWithQuota(ctx, &download.Download{LicenseID: id, DownloadToken: "fixed"}, time.Now())
	require.NoError(t, err)
	f.dl.newToken = func(time.Time) (string, error) { return "fixed", nil }

	_, err = f.dl.CreateDownload(ctx, f.downloadRequest())
	assert.ErrorIs(t, err, ierr.ErrInternalServer)
	assert.Equal(t, 1, f.mustLicense(t, id).DownloadsCount)
}

func TestCreateDownload_TokenGeneratorFailure(t *testing.T) {
	f := newFixture(t)
	f.seedLicense(5, 0, time.Now().Add(time.Hour))
	f.dl.newToken = func(time.Time) (string, error) { return "", errors.New("entropy unavailable") }

	_, err := f.dl.CreateDownload(context.Background(), f.downloadRequest())
	assert.ErrorIs(t, err, ierr.ErrInternalServer)
}

func TestCreateDownload_LastSlotRace(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id := f.seedLicense(3, 2, time.Now().Add(time.Hour))

	var mu sync.Mutex
	var results []error

	var g errgroup.Group
	for i := 0; i < 2; i++ {
		g.Go(func() error {
			_, err := f.dl.CreateDownload(ctx, f.downloadRequest())
			mu.Lock()
			results = append(results, err)
			mu.Unlock()
			return nil
		})
	}
	require.NoError(t, g.Wait())

	var ok, quota int
	for _, err := range results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ierr.ErrQuotaExceeded):
			quota++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, quota)
	assert.Equal(t, 3, f.mustLicense(t, id).DownloadsCount)
}

func TestCreateDownload_CounterNeverExceedsMax(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		max := rapid.IntRange(1, 6).Draw(rt, "max")
		start := rapid.IntRange(0, max).Draw(rt, "start")
		attempts := rapid.IntRange(1, 10).Draw(rt, "attempts")

		f := newFixture(t)
		id := f.seedLicense(max, start, time.Now().Add(time.Hour))

		var g errgroup.Group
		for i := 0; i < attempts; i++ {
			g.Go(func() error {
				_, err := f.dl.CreateDownload(context.Background(), f.downloadRequest())
				if err != nil && !errors.Is(err, ierr.ErrQuotaExceeded) {
					return err
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			rt.Fatalf("unexpected error: %v", err)
		}

		lic, err := f.store.Licenses().FindByID(context.Background(), id)
		if err != nil {
			rt.Fatal(err)
		}
		assert.Equal(rt, min(max, start+attempts), lic.DownloadsCount)
	})
}

func TestRedeemToken_Success(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedLicense(3, 0, time.Now().Add(time.Hour))

	created, err := f.dl.CreateDownload(ctx, f.downloadRequest())
	require.NoError(t, err)

	res, err := f.dl.RedeemToken(ctx, RedeemRequest{Token: created.Token, ClientIP: "198.51.100.2"})
	require.NoError(t, err)
	assert.Equal(t, created.DownloadURL, res.DownloadURL)
	assert.Equal(t, "aurora-landing", res.Template.Slug)
	require.NotNil(t, res.Template.FileSize)
	assert.Equal(t, "5 MB", *res.Template.FileSize)
	assert.Equal(t, RedeemMessage, res.Message)

	stored, err := f.store.Downloads().FindByToken(ctx, created.Token)
	require.NoError(t, err)
	assert.True(t, stored.IsExpired)
	assert.Equal(t, []audit.Action{audit.ActionDownloadCreated, audit.ActionDownloadRedeemed}, f.tasks.actions())

	_, err = f.dl.RedeemToken(ctx, RedeemRequest{Token: created.Token})
	assert.ErrorIs(t, err, ierr.ErrTokenExpired)
}

func TestRedeemToken_MalformedSkipsStorage(t *testing.T) {
	f := newFixture(t)

	for _, token := range []string{
		"",
		"short",
		"ABCDEF0123456789abcdef0123456789lx2k",
		"0123456789abcdef0123456789abcdef",
		"0123456789abcdef0123456789abcdef!!",
		"0123456789abcdef0123456789abcdefzzzzzzzzzzzzzz",
	} {
		_, err := f.dl.RedeemToken(context.Background(), RedeemRequest{Token: token})
		assert.ErrorIs(t, err, ierr.ErrMalformedToken, token)
	}
	assert.Zero(t, f.downloads.lookups)
}

func TestRedeemToken_NotFound(t *testing.T) {
	f := newFixture(t)
	token, err := download.GenerateToken(time.Now())
	require.NoError(t, err)

	_, err = f.dl.RedeemToken(context.Background(), RedeemRequest{Token: token})
	assert.ErrorIs(t, err, ierr.ErrTokenNotFound)
	assert.Equal(t, 1, f.downloads.lookups)
}

func TestRedeemToken_Lapsed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedLicense(3, 0, time.Now().Add(72*time.Hour))

	created, err := f.dl.CreateDownload(ctx, f.downloadRequest())
	require.NoError(t, err)

	f.dl.now = func() time.Time { return time.Now().Add(testTokenTTL + time.Minute) }
	_, err = f.dl.RedeemToken(ctx, RedeemRequest{Token: created.Token})
	assert.ErrorIs(t, err, ierr.ErrTokenExpired)

	stored, err := f.store.Downloads().FindByToken(ctx, created.Token)
	require.NoError(t, err)
	assert.True(t, stored.IsExpired)
}

func TestRedeemToken_LicenseChecks(t *testing.T) {
	ctx := context.Background()

	t.Run("suspended after minting", func(t *testing.T) {
		f := newFixture(t)
		id := f.seedLicense(3, 0, time.Now().Add(time.Hour))
		created, err := f.dl.CreateDownload(ctx, f.downloadRequest())
		require.NoError(t, err)

		require.NoError(t, f.store.Licenses().UpdateStatus(ctx, id, license.StatusActive, license.StatusSuspended))

		_, err = f.dl.RedeemToken(ctx, RedeemRequest{Token: created.Token})
		assert.ErrorIs(t, err, ierr.ErrLicenseInactive)

		stored, _ := f.store.Downloads().FindByToken(ctx, created.Token)
		assert.False(t, stored.IsExpired, "denied redemption does not burn the token")
	})

	t.Run("validity ended after minting", func(t *testing.T) {
		f := newFixture(t)
		id := f.seedLicense(3, 0, time.Now().Add(time.Hour))
		created, err := f.dl.CreateDownload(ctx, f.downloadRequest())
		require.NoError(t, err)

		f.dl.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
		_, err = f.dl.RedeemToken(ctx, RedeemRequest{Token: created.Token})
		assert.ErrorIs(t, err, ierr.ErrLicenseInactive)
		assert.Contains(t, f.tasks.expired, id)
	})

	t.Run("counter past ceiling", func(t *testing.T) {
		f := newFixture(t)
		id := f.seedLicense(3, 0, time.Now().Add(time.Hour))
		created, err := f.dl.CreateDownload(ctx, f.downloadRequest())
		require.NoError(t, err)

		lic := f.mustLicense(t, id)
		lic.DownloadsCount = 4
		f.store.PutLicense(lic)

		_, err = f.dl.RedeemToken(ctx, RedeemRequest{Token: created.Token})
		assert.ErrorIs(t, err, ierr.ErrQuotaExceeded)
	})

	t.Run("counter at ceiling still redeems", func(t *testing.T) {
		f := newFixture(t)
		f.seedLicense(1, 0, time.Now().Add(time.Hour))
		created, err := f.dl.CreateDownload(ctx, f.downloadRequest())
		require.NoError(t, err)

		_, err = f.dl.RedeemToken(ctx, RedeemRequest{Token: created.Token})
		assert.NoError(t, err)
	})
}

func TestRedeemToken_ConcurrentSingleUse(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedLicense(3, 0, time.Now().Add(time.Hour))
	created, err := f.dl.CreateDownload(ctx, f.downloadRequest())
	require.NoError(t, err)

	const redeemers = 8
	var mu sync.Mutex
	succeeded, expired := 0, 0

	var g errgroup.Group
	for i := 0; i < redeemers; i++ {
		g.Go(func() error {
			_, err := f.dl.RedeemToken(ctx, RedeemRequest{Token: created.Token})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, ierr.ErrTokenExpired):
				expired++
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, redeemers-1, expired)
}

func TestListDownloads(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedLicense(3, 0, time.Now().Add(time.Hour))

	for i := 0; i < 2; i++ {
		_, err := f.dl.CreateDownload(ctx, f.downloadRequest())
		require.NoError(t, err)
	}

	mine, err := f.dl.ListDownloads(ctx, f.userID)
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	theirs, err := f.dl.ListDownloads(ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, theirs)
}

type rotatingResolver struct {
	urls []string
	n    int
}

func (r *rotatingResolver) Resolve(context.Context, string) (string, error) {
	if r.n >= len(r.urls) {
		return "", filestore.ErrFileUnavailable
	}
	url := r.urls[r.n]
	r.n++
	return url, nil
}

func TestRedeemToken_ResolvesFileAgain(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedLicense(3, 0, time.Now().Add(time.Hour))
	f.dl.files = &rotatingResolver{urls: []string{"https://files.example/signed?v=1", "https://files.example/signed?v=2"}}

	created, err := f.dl.CreateDownload(ctx, f.downloadRequest())
	require.NoError(t, err)
	assert.Equal(t, "https://files.example/signed?v=1", created.DownloadURL)

	res, err := f.dl.RedeemToken(ctx, RedeemRequest{Token: created.Token})
	require.NoError(t, err)
	assert.Equal(t, "https://files.example/signed?v=2", res.DownloadURL)
}

func TestRedeemToken_FileGoneKeepsToken(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seedLicense(3, 0, time.Now().Add(time.Hour))
	f.dl.files = &rotatingResolver{urls: []string{"https://files.example/once"}}

	created, err := f.dl.CreateDownload(ctx, f.downloadRequest())
	require.NoError(t, err)

	_, err = f.dl.RedeemToken(ctx, RedeemRequest{Token: created.Token})
	assert.ErrorIs(t, err, ierr.ErrFileUnavailable)

	stored, err := f.store.Downloads().FindByToken(ctx, created.Token)
	require.NoError(t, err)
	assert.False(t, stored.IsExpired)
}

// interleavedDownloads runs another reservation just before the service's own.
type interleavedDownloads struct {
	download.Repository
	before func()
}

func (r *interleavedDownloads) CreateWithQuota(ctx context.Context, d *download.Download, now time.Time) (int, error) {
	if r.before != nil {
		r.before()
		r.before = nil
	}
	return r.Repository.CreateWithQuota(ctx, d, now)
}

func TestCreateDownload_RemainingReflectsConcurrentMint(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	id := f.seedLicense(5, 0, time.Now().Add(time.Hour))

	f.dl.downloads = &interleavedDownloads{
		Repository: f.store.Downloads(),
		before: func() {
			_, err := f.store.Downloads().CreateWithQuota(ctx, &download.Download{LicenseID: id, DownloadToken: "other-mint"}, time.Now())
			require.NoError(t, err)
		},
	}

	res, err := f.dl.CreateDownload(ctx, f.downloadRequest())
	require.NoError(t, err)
	assert.Equal(t, 3, res.RemainingDownloads)
	assert.Equal(t, 2, f.mustLicense(t, id).DownloadsCount)
}
