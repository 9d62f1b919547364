package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/parcelsync/internal/core/classifier"
	"github.com/custodia-labs/parcelsync/internal/core/domain"
	"github.com/custodia-labs/parcelsync/internal/core/normaliser"
	"github.com/custodia-labs/parcelsync/internal/core/ports/driving"
)

const testSourceID = "deliveries"

var testHeaders = []string{"Tracking", "Customer Name", "Phone", "Address", "Status", "Scan Date"}

func deliverySheet() *domain.Sheet {
	return &domain.Sheet{
		Headers: append([]string(nil), testHeaders...),
		Rows: [][]string{
			{"RR100000001IL", "Dana Cohen", "050-1234567", "Main St 12, Tel Aviv", "Pending", "2024-05-06"},
			{"RR100000002IL", "Dana Cohen", "050-1234567", "Main St 12, Tel Aviv", "In transit", "2024-05-06"},
			{"RR100000003IL", "Avi Levi", "0527654321", "Herzl 5, Haifa", "Pending", "2024-05-07"},
		},
	}
}

type syncFixture struct {
	orch      *SyncOrchestrator
	sources   *mockSourceStore
	snapshots *mockSnapshotStore
	mappings  *mockMappingStore
	changes   *mockChangeStore
	history   *mockHistoryStore
	conn      *mockConnector
	factory   *mockConnectorFactory
	network   *mockConnectivity
}

func newSyncFixture(t *testing.T) *syncFixture {
	t.Helper()
	f := &syncFixture{
		sources: newMockSourceStore(domain.Source{
			ID:     testSourceID,
			Type:   domain.SourceTypeCSV,
			Name:   "Deliveries",
			Config: map[string]string{domain.ConfigPath: "/tmp/deliveries.csv"},
		}),
		snapshots: newMockSnapshotStore(),
		mappings:  &mockMappingStore{},
		changes:   &mockChangeStore{},
		history:   &mockHistoryStore{},
		conn:      &mockConnector{sourceID: testSourceID, sheet: deliverySheet()},
		factory:   newMockConnectorFactory(),
		network:   &mockConnectivity{online: true},
	}
	f.factory.connectors[testSourceID] = f.conn

	f.orch = NewSyncOrchestrator(
		f.sources,
		f.snapshots,
		f.mappings,
		f.factory,
		NewChangeQueue(f.changes),
		f.network,
		classifier.New(classifier.DefaultConfig()),
		normaliser.New(normaliser.DefaultConfig()),
	)
	f.orch.SetStatusHistory(f.history)
	f.orch.now = func() time.Time { return time.Date(2024, 5, 8, 9, 30, 0, 0, time.UTC) }
	return f
}

func findRecord(t *testing.T, snap *domain.Snapshot, tracking string) domain.DeliveryRecord {
	t.Helper()
	for _, r := range snap.Records {
		if r.TrackingNumber == tracking {
			return r
		}
	}
	t.Fatalf("record %s not in snapshot", tracking)
	return domain.DeliveryRecord{}
}

func cached(t *testing.T, f *syncFixture) *domain.Snapshot {
	t.Helper()
	snap, err := f.orch.Records(context.Background(), testSourceID)
	require.NoError(t, err)
	return snap
}

func TestSync_FetchesAndCaches(t *testing.T) {
	f := newSyncFixture(t)
	ctx := context.Background()

	snap, err := f.orch.Sync(ctx, testSourceID)
	require.NoError(t, err)
	assert.False(t, snap.FromCache)
	require.Len(t, snap.Records, 3)

	dana := findRecord(t, snap, "RR100000001IL")
	assert.Equal(t, "Dana Cohen", dana.Name)
	assert.Equal(t, "+972501234567", dana.Phone)
	assert.Equal(t, domain.StatusPending, dana.Status)
	assert.Equal(t, domain.StatusInProgress, findRecord(t, snap, "RR100000002IL").Status)
	assert.Equal(t, domain.HeaderHash(testHeaders), snap.HeaderHash)

	assert.Len(t, cached(t, f).Records, 3)
	assert.Equal(t, 1, f.mappings.count())

	status, err := f.orch.Status(ctx, testSourceID)
	require.NoError(t, err)
	assert.Equal(t, driving.SyncIdle, status.State)
	assert.Equal(t, driving.SyncSuccess, status.LastOutcome)
	assert.Equal(t, 3, status.Records)
	assert.True(t, status.Online)
	assert.Empty(t, status.LastError)

	// Unchanged headers reuse the cached mapping.
	_, err = f.orch.Sync(ctx, testSourceID)
	require.NoError(t, err)
	assert.Equal(t, 1, f.mappings.count())
	assert.Equal(t, 2, f.conn.fetchCount())
}

func TestSync_ReturnsIndependentCopies(t *testing.T) {
	f := newSyncFixture(t)

	snap, err := f.orch.Sync(context.Background(), testSourceID)
	require.NoError(t, err)
	snap.Records[0].Status = domain.StatusReturned

	assert.Equal(t, domain.StatusPending, findRecord(t, cached(t, f), "RR100000001IL").Status)
}

func TestSync_HeaderChangeReclassifies(t *testing.T) {
	f := newSyncFixture(t)
	ctx := context.Background()

	_, err := f.orch.Sync(ctx, testSourceID)
	require.NoError(t, err)

	sheet := deliverySheet()
	sheet.Headers[0] = "Tracking Number"
	f.conn.setSheet(sheet)

	snap, err := f.orch.Sync(ctx, testSourceID)
	require.NoError(t, err)
	assert.Equal(t, 2, f.mappings.count())
	assert.Equal(t, domain.HeaderHash(sheet.Headers), snap.HeaderHash)
	ref, ok := snap.Mapping.Column(domain.FieldTrackingNumber)
	require.True(t, ok)
	assert.Equal(t, 0, ref.Index)
}

func TestSync_FetchFailureServesCache(t *testing.T) {
	f := newSyncFixture(t)
	ctx := context.Background()

	_, err := f.orch.Sync(ctx, testSourceID)
	require.NoError(t, err)

	f.conn.setFetchErr(errors.New("connection reset"))
	snap, err := f.orch.Sync(ctx, testSourceID)
	require.NoError(t, err)
	assert.True(t, snap.FromCache)
	assert.Len(t, snap.Records, 3)

	status, err := f.orch.Status(ctx, testSourceID)
	require.NoError(t, err)
	assert.Equal(t, driving.SyncIdle, status.State)
	assert.Equal(t, driving.SyncUsingCache, status.LastOutcome)
	assert.Contains(t, status.LastError, "connection reset")
}

func TestSync_FetchFailureWithoutCache(t *testing.T) {
	f := newSyncFixture(t)
	f.conn.setFetchErr(errors.New("connection reset"))

	_, err := f.orch.Sync(context.Background(), testSourceID)
	assert.ErrorIs(t, err, domain.ErrSourceUnavailable)
}

func TestSync_OfflineSkipsFetch(t *testing.T) {
	f := newSyncFixture(t)
	f.network.set(false)

	_, err := f.orch.Sync(context.Background(), testSourceID)
	assert.ErrorIs(t, err, domain.ErrOffline)
	assert.ErrorIs(t, err, domain.ErrSourceUnavailable)
	assert.Zero(t, f.conn.fetchCount())
}

func TestSync_OfflineServesCache(t *testing.T) {
	f := newSyncFixture(t)
	ctx := context.Background()
	_, err := f.orch.Sync(ctx, testSourceID)
	require.NoError(t, err)

	f.network.set(false)
	snap, err := f.orch.Sync(ctx, testSourceID)
	require.NoError(t, err)
	assert.True(t, snap.FromCache)
	assert.Equal(t, 1, f.conn.fetchCount())

	status, err := f.orch.Status(ctx, testSourceID)
	require.NoError(t, err)
	assert.False(t, status.Online)
	assert.Equal(t, driving.SyncIdle, status.State)
	assert.Equal(t, driving.SyncUsingCache, status.LastOutcome)
}

func TestSync_NoSource(t *testing.T) {
	f := newSyncFixture(t)
	ctx := context.Background()

	_, err := f.orch.Sync(ctx, "unknown")
	assert.ErrorIs(t, err, domain.ErrNoSource)

	require.NoError(t, f.snapshots.Save(ctx, &domain.Snapshot{
		SourceID: "unknown",
		Records:  []domain.DeliveryRecord{{ID: "r1", TrackingNumber: "RR1"}},
	}))
	snap, err := f.orch.Sync(ctx, "unknown")
	require.NoError(t, err)
	assert.True(t, snap.FromCache)
	assert.Len(t, snap.Records, 1)
}

func TestSync_MalformedIsSurfaced(t *testing.T) {
	f := newSyncFixture(t)
	ctx := context.Background()
	_, err := f.orch.Sync(ctx, testSourceID)
	require.NoError(t, err)

	f.conn.setFetchErr(fmt.Errorf("%w: range has no header row", domain.ErrSourceMalformed))
	_, err = f.orch.Sync(ctx, testSourceID)
	assert.ErrorIs(t, err, domain.ErrSourceMalformed)
	assert.Len(t, cached(t, f).Records, 3)

	f.conn.setFetchErr(nil)
	f.conn.setSheet(&domain.Sheet{})
	_, err = f.orch.Sync(ctx, testSourceID)
	assert.ErrorIs(t, err, domain.ErrSourceMalformed)
}

func TestSync_EmptyID(t *testing.T) {
	f := newSyncFixture(t)
	_, err := f.orch.Sync(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSync_SingleFlight(t *testing.T) {
	f := newSyncFixture(t)
	gate := make(chan struct{})
	f.conn.fetchGate = gate
	f.conn.fetchEnter = make(chan struct{}, 4)

	var wg sync.WaitGroup
	results := make([]*domain.Snapshot, 2)
	errs := make([]error, 2)

	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], errs[0] = f.orch.Sync(context.Background(), testSourceID)
	}()
	<-f.conn.fetchEnter

	status, err := f.orch.Status(context.Background(), testSourceID)
	require.NoError(t, err)
	assert.Equal(t, driving.SyncFetching, status.State)

	wg.Add(1)
	go func() {
		defer wg.Done()
		results[1], errs[1] = f.orch.Sync(context.Background(), testSourceID)
	}()
	time.Sleep(50 * time.Millisecond)
	close(gate)
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.Equal(t, 1, f.conn.fetchCount())
	assert.Len(t, results[0].Records, 3)
	assert.Len(t, results[1].Records, 3)

	status, err = f.orch.Status(context.Background(), testSourceID)
	require.NoError(t, err)
	assert.Equal(t, driving.SyncIdle, status.State)
	assert.Equal(t, driving.SyncSuccess, status.LastOutcome)
}

func TestSync_WaiterHonoursOwnContext(t *testing.T) {
	f := newSyncFixture(t)
	gate := make(chan struct{})
	f.conn.fetchGate = gate
	f.conn.fetchEnter = make(chan struct{}, 4)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := f.orch.Sync(ctx, testSourceID)
		done <- err
	}()
	<-f.conn.fetchEnter
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	// The shared fetch still completes and lands in the cache.
	close(gate)
	snap, err := f.orch.Sync(context.Background(), testSourceID)
	require.NoError(t, err)
	assert.Len(t, snap.Records, 3)
}

func TestSyncAll_ReportsFailuresPerSource(t *testing.T) {
	f := newSyncFixture(t)
	require.NoError(t, f.sources.Save(context.Background(), domain.Source{ID: "broken", Type: domain.SourceTypeCSV}))

	failures := f.orch.SyncAll(context.Background())
	require.Len(t, failures, 1)
	assert.ErrorIs(t, failures["broken"], domain.ErrSourceUnavailable)
}

func TestSetStatus_OnlinePushesImmediately(t *testing.T) {
	f := newSyncFixture(t)
	ctx := context.Background()
	snap, err := f.orch.Sync(ctx, testSourceID)
	require.NoError(t, err)
	avi := findRecord(t, snap, "RR100000003IL")

	changed, err := f.orch.SetStatus(ctx, driving.StatusRequest{
		SourceID: testSourceID,
		RecordID: avi.ID,
		Status:   domain.StatusDelivered,
	})
	require.NoError(t, err)
	require.Len(t, changed, 1)
	assert.Equal(t, avi.ID, changed[0].ID)

	pushes := f.conn.pushed()
	require.Len(t, pushes, 1)
	assert.Equal(t, domain.StatusDelivered, pushes[0].Status)
	assert.Equal(t, domain.UpdateSingle, pushes[0].UpdateType)
	assert.Equal(t, "2024-05-08 09:30", pushes[0].StatusDate)
	require.Len(t, pushes[0].Affected, 1)
	assert.Equal(t, 3, pushes[0].Affected[0].Row)
	assert.NotNil(t, pushes[0].Mapping)

	n, err := f.orch.queue.PendingCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	rec := findRecord(t, cached(t, f), "RR100000003IL")
	assert.Equal(t, domain.StatusDelivered, rec.Status)
	assert.Equal(t, "2024-05-08 09:30", rec.StatusDate)

	require.Len(t, f.history.events, 1)
	assert.Equal(t, avi.ID, f.history.events[0].RecordID)
}

func TestSetStatus_ByTrackingNumber(t *testing.T) {
	f := newSyncFixture(t)
	ctx := context.Background()
	_, err := f.orch.Sync(ctx, testSourceID)
	require.NoError(t, err)

	changed, err := f.orch.SetStatus(ctx, driving.StatusRequest{
		SourceID:       testSourceID,
		TrackingNumber: "RR100000002IL",
		Status:         domain.StatusReturned,
	})
	require.NoError(t, err)
	require.Len(t, changed, 1)
	assert.Equal(t, "RR100000002IL", changed[0].TrackingNumber)
}

func TestSetStatus_Validation(t *testing.T) {
	f := newSyncFixture(t)
	ctx := context.Background()
	_, err := f.orch.Sync(ctx, testSourceID)
	require.NoError(t, err)

	_, err = f.orch.SetStatus(ctx, driving.StatusRequest{SourceID: testSourceID, TrackingNumber: "RR100000001IL", Status: "lost"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.orch.SetStatus(ctx, driving.StatusRequest{SourceID: testSourceID, TrackingNumber: "RR100000001IL", Status: domain.StatusDelivered, UpdateType: "all"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.orch.SetStatus(ctx, driving.StatusRequest{SourceID: testSourceID, TrackingNumber: "NOPE", Status: domain.StatusDelivered})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.orch.SetStatus(ctx, driving.StatusRequest{SourceID: "other", TrackingNumber: "RR100000001IL", Status: domain.StatusDelivered})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	n, _ := f.orch.queue.PendingCount(ctx)
	assert.Zero(t, n)
}

func TestSetStatus_PushFailureKeepsChangeQueued(t *testing.T) {
	f := newSyncFixture(t)
	ctx := context.Background()
	_, err := f.orch.Sync(ctx, testSourceID)
	require.NoError(t, err)

	f.conn.setPushErr(fmt.Errorf("%w: protected range", domain.ErrMutationRejected))
	_, err = f.orch.SetStatus(ctx, driving.StatusRequest{
		SourceID:       testSourceID,
		TrackingNumber: "RR100000001IL",
		Status:         domain.StatusFailed,
	})
	require.NoError(t, err)

	pending, err := f.orch.queue.List(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, 1, pending[0].RetryCount)
	assert.Contains(t, pending[0].LastError, "protected range")

	assert.Equal(t, domain.StatusFailed, findRecord(t, cached(t, f), "RR100000001IL").Status)
	assert.Empty(t, f.history.events)
}

func TestSetStatus_OfflineQueuesAndSurvivesSync(t *testing.T) {
	f := newSyncFixture(t)
	ctx := context.Background()
	_, err := f.orch.Sync(ctx, testSourceID)
	require.NoError(t, err)

	f.network.set(false)
	changed, err := f.orch.SetStatus(ctx, driving.StatusRequest{
		SourceID:       testSourceID,
		TrackingNumber: "RR100000003IL",
		Status:         domain.StatusDelivered,
	})
	require.NoError(t, err)
	assert.Len(t, changed, 1)
	assert.Empty(t, f.conn.pushed())

	status, err := f.orch.Status(ctx, testSourceID)
	require.NoError(t, err)
	assert.Equal(t, 1, status.PendingChanges)
	assert.Equal(t, 3, status.Records)

	// A refresh from the remote, which still says pending, keeps the
	// optimistic status while the change is queued.
	f.network.set(true)
	snap, err := f.orch.Sync(ctx, testSourceID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDelivered, findRecord(t, snap, "RR100000003IL").Status)

	res, err := f.orch.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.DrainResult{Succeeded: 1}, res)
	require.Len(t, f.conn.pushed(), 1)

	status, err = f.orch.Status(ctx, testSourceID)
	require.NoError(t, err)
	assert.Zero(t, status.PendingChanges)
}

func TestSetStatus_BatchResolvedAtReplay(t *testing.T) {
	f := newSyncFixture(t)
	ctx := context.Background()
	_, err := f.orch.Sync(ctx, testSourceID)
	require.NoError(t, err)

	f.network.set(false)
	changed, err := f.orch.SetStatus(ctx, driving.StatusRequest{
		SourceID:       testSourceID,
		TrackingNumber: "RR100000001IL",
		Status:         domain.StatusDelivered,
		UpdateType:     domain.UpdateBatch,
	})
	require.NoError(t, err)
	assert.Len(t, changed, 2)

	snap := cached(t, f)
	assert.Equal(t, domain.StatusDelivered, findRecord(t, snap, "RR100000001IL").Status)
	assert.Equal(t, domain.StatusDelivered, findRecord(t, snap, "RR100000002IL").Status)
	assert.Equal(t, domain.StatusPending, findRecord(t, snap, "RR100000003IL").Status)

	// Another parcel for the same customer shows up before replay.
	sheet := deliverySheet()
	sheet.Rows = append(sheet.Rows, []string{"RR100000004IL", "Dana Cohen", "0501234567", "Main St 12, Tel Aviv", "Pending", "2024-05-08"})
	f.conn.setSheet(sheet)

	f.network.set(true)
	res, err := f.orch.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Succeeded)

	pushes := f.conn.pushed()
	require.Len(t, pushes, 1)
	var tracked []string
	for _, ref := range pushes[0].Affected {
		tracked = append(tracked, ref.TrackingNumber)
	}
	assert.ElementsMatch(t, []string{"RR100000001IL", "RR100000002IL", "RR100000004IL"}, tracked)
	assert.Len(t, f.history.events, 3)
}

func TestDrain_FailedBatchKeepsLaterSingleBehindIt(t *testing.T) {
	f := newSyncFixture(t)
	ctx := context.Background()
	_, err := f.orch.Sync(ctx, testSourceID)
	require.NoError(t, err)

	f.network.set(false)
	_, err = f.orch.SetStatus(ctx, driving.StatusRequest{
		SourceID:       testSourceID,
		TrackingNumber: "RR100000001IL",
		Status:         domain.StatusDelivered,
		UpdateType:     domain.UpdateBatch,
	})
	require.NoError(t, err)
	_, err = f.orch.SetStatus(ctx, driving.StatusRequest{
		SourceID:       testSourceID,
		TrackingNumber: "RR100000002IL",
		Status:         domain.StatusFailed,
	})
	require.NoError(t, err)

	f.network.set(true)
	f.conn.setPushErr(fmt.Errorf("%w: timeout", domain.ErrSourceUnavailable))
	res, err := f.orch.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.DrainResult{Failed: 1, Deferred: 1}, res)
	assert.Empty(t, f.conn.pushed())

	f.conn.setPushErr(nil)
	res, err = f.orch.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.DrainResult{Succeeded: 2}, res)

	pushes := f.conn.pushed()
	require.Len(t, pushes, 2)
	assert.Equal(t, domain.UpdateBatch, pushes[0].UpdateType)
	assert.Equal(t, domain.StatusDelivered, pushes[0].Status)
	assert.Equal(t, "RR100000002IL", pushes[1].Target.TrackingNumber)
	assert.Equal(t, domain.StatusFailed, pushes[1].Status)

	snap := cached(t, f)
	assert.Equal(t, domain.StatusDelivered, findRecord(t, snap, "RR100000001IL").Status)
	assert.Equal(t, domain.StatusFailed, findRecord(t, snap, "RR100000002IL").Status)
}

func TestDrain_Offline(t *testing.T) {
	f := newSyncFixture(t)
	f.network.set(false)

	_, err := f.orch.Drain(context.Background())
	assert.ErrorIs(t, err, domain.ErrOffline)
}

func TestDrain_TargetRemovedStaysQueued(t *testing.T) {
	f := newSyncFixture(t)
	ctx := context.Background()
	_, err := f.orch.Sync(ctx, testSourceID)
	require.NoError(t, err)

	f.network.set(false)
	_, err = f.orch.SetStatus(ctx, driving.StatusRequest{
		SourceID:       testSourceID,
		TrackingNumber: "RR100000003IL",
		Status:         domain.StatusDelivered,
	})
	require.NoError(t, err)

	sheet := deliverySheet()
	sheet.Rows = sheet.Rows[:2]
	f.conn.setSheet(sheet)

	f.network.set(true)
	res, err := f.orch.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.DrainResult{Failed: 1}, res)
	assert.Empty(t, f.conn.pushed())

	pending, err := f.orch.queue.List(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, 1, pending[0].RetryCount)
	assert.Contains(t, pending[0].LastError, domain.ErrMutationRejected.Error())
}

func TestDrain_FetchFailureFailsEverySourceEntry(t *testing.T) {
	f := newSyncFixture(t)
	ctx := context.Background()
	_, err := f.orch.Sync(ctx, testSourceID)
	require.NoError(t, err)

	f.network.set(false)
	for _, tracking := range []string{"RR100000001IL", "RR100000003IL"} {
		_, err = f.orch.SetStatus(ctx, driving.StatusRequest{
			SourceID:       testSourceID,
			TrackingNumber: tracking,
			Status:         domain.StatusReturned,
		})
		require.NoError(t, err)
	}
	fetchesBefore := f.conn.fetchCount()

	f.conn.setFetchErr(errors.New("quota exceeded"))
	f.network.set(true)
	res, err := f.orch.Drain(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.DrainResult{Failed: 2}, res)
	assert.Equal(t, fetchesBefore+1, f.conn.fetchCount())
}
