package sync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		local  time.Duration
		status Status
		action Action
	}{
		{"equal", 0, StatusInSync, ActionNone},
		{"local 500ms ahead", 500 * time.Millisecond, StatusInSync, ActionNone},
		{"local 999ms behind", -999 * time.Millisecond, StatusInSync, ActionNone},
		{"exactly one second ahead", time.Second, StatusLocalNewer, ActionUpload},
		{"exactly one second behind", -time.Second, StatusCloudNewer, ActionDownload},
		{"local 5s behind", -5 * time.Second, StatusCloudNewer, ActionDownload},
		{"local an hour ahead", time.Hour, StatusLocalNewer, ActionUpload},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, action := classify(base.Add(tt.local), base)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.action, action)
		})
	}
}

func TestDecide(t *testing.T) {
	local := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	match := &CloudMatch{ArchiveID: "a", ModifiedAt: local.Add(-time.Hour)}

	c, err := decide(testGame, 1, "/p", time.Time{}, false, match)
	require.NoError(t, err)
	assert.Equal(t, StatusCloudOnly, c.Status)
	assert.Equal(t, ActionNone, c.Action)
	assert.True(t, c.LocalTime.IsZero())
	assert.Equal(t, match.ModifiedAt, c.CloudTime)

	c, err = decide(testGame, 1, "/p", local, true, nil)
	require.NoError(t, err)
	assert.Equal(t, StatusLocalOnly, c.Status)
	assert.Equal(t, ActionUpload, c.Action)
	assert.Nil(t, c.Match)

	c, err = decide(testGame, 1, "/p", local, true, match)
	require.NoError(t, err)
	assert.Equal(t, StatusLocalNewer, c.Status)

	_, err = decide(testGame, 1, "/p", time.Time{}, false, nil)
	assert.ErrorIs(t, err, ErrNoSave)
}

func TestCompareSlot_Scenarios(t *testing.T) {
	cloudTime := cloudEpoch.Add(3 * time.Hour)

	tests := []struct {
		name   string
		local  *time.Time
		cloud  bool
		status Status
		action Action
	}{
		{"within tolerance", ptr(cloudTime.Add(500 * time.Millisecond)), true, StatusInSync, ActionNone},
		{"local older", ptr(cloudTime.Add(-5 * time.Second)), true, StatusCloudNewer, ActionDownload},
		{"local newer", ptr(cloudTime.Add(5 * time.Second)), true, StatusLocalNewer, ActionUpload},
		{"cloud only", nil, true, StatusCloudOnly, ActionNone},
		{"local only", ptr(cloudTime), false, StatusLocalOnly, ActionUpload},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			env := newTestEnv(t, store)
			path := slotPathIn(saveDir, 1)

			if tt.cloud {
				store.put(testFolder, "PC - a.zip", cloudTime, packArchive(t, nil, map[int]string{1: "cloud"}))
			}

			if tt.local != nil {
				env.writeLocal(t, path, "local", *tt.local)
			}

			c, err := env.engine.CompareSlot(t.Context(), testGame, 1, path)
			require.NoError(t, err)

			assert.Equal(t, tt.status, c.Status)
			assert.Equal(t, tt.action, c.Action)
			assert.Equal(t, path, c.LocalPath)

			if tt.cloud {
				require.NotNil(t, c.Match)
				assert.Equal(t, "PC - a.zip", c.Match.ArchiveName)
				assert.Equal(t, "user1.dat", c.Match.EntryName)
				assert.Equal(t, cloudTime, c.CloudTime)
			}
		})
	}
}

func ptr[T any](v T) *T { return &v }

func TestCompareSlot_NoSave(t *testing.T) {
	env := newTestEnv(t, newFakeStore())

	_, err := env.engine.CompareSlot(t.Context(), testGame, 1, slotPathIn(saveDir, 1))
	assert.ErrorIs(t, err, ErrNoSave)
}

func TestCompareSlot_NewestArchiveContainingSlotWins(t *testing.T) {
	store := newFakeStore()
	env := newTestEnv(t, store)

	store.put(testFolder, "old.zip", cloudEpoch, packArchive(t, nil, map[int]string{2: "old"}))
	store.put(testFolder, "mid.zip", cloudEpoch.Add(time.Hour), packArchive(t, nil, map[int]string{2: "mid"}))
	store.put(testFolder, "newest.zip", cloudEpoch.Add(2*time.Hour), packArchive(t, nil, map[int]string{1: "other"}))
	broken := store.put(testFolder, "broken.zip", cloudEpoch.Add(3*time.Hour), []byte("not a zip"))
	store.failIDs[store.put(testFolder, "gone.zip", cloudEpoch.Add(4*time.Hour), nil)] = true

	path := slotPathIn(saveDir, 2)
	env.writeLocal(t, path, "x", cloudEpoch.Add(time.Hour))

	c, err := env.engine.CompareSlot(t.Context(), testGame, 2, path)
	require.NoError(t, err)
	require.NotNil(t, c.Match)
	assert.Equal(t, "mid.zip", c.Match.ArchiveName)
	assert.Equal(t, StatusInSync, c.Status)
	assert.NotEqual(t, broken, c.Match.ArchiveID)
}

func TestCompareSlot_MatchesEntryCaseInsensitively(t *testing.T) {
	store := newFakeStore()
	env := newTestEnv(t, store)

	content := zipWith(t, map[string][]byte{"USER3.DAT": hostSlot(t, "x")})
	store.put(testFolder, "switch.zip", cloudEpoch, content)

	c, err := env.engine.CompareSlot(t.Context(), testGame, 3, slotPathIn(saveDir, 3))
	require.NoError(t, err)
	assert.Equal(t, StatusCloudOnly, c.Status)
	assert.Equal(t, "USER3.DAT", c.Match.EntryName)
}

func TestCompareSlot_Rejects(t *testing.T) {
	env := newTestEnv(t, newFakeStore())

	_, err := env.engine.CompareSlot(t.Context(), testGame, 0, "/x")
	require.ErrorIs(t, err, ErrInvalidSlot)

	_, err = env.engine.CompareSlot(t.Context(), "celeste", 1, "/x")
	require.ErrorIs(t, err, ErrUnknownGame)

	require.NoError(t, env.fs.MkdirAll(slotPathIn(saveDir, 1), 0o755))

	_, err = env.engine.CompareSlot(t.Context(), testGame, 1, slotPathIn(saveDir, 1))
	assert.ErrorIs(t, err, ErrNotRegular)
}

func TestCompareAll(t *testing.T) {
	store := newFakeStore()
	env := newTestEnv(t, store)

	store.put(testFolder, "a.zip", cloudEpoch, packArchive(t, nil, map[int]string{1: "a", 2: "a"}))
	store.put(testFolder, "b.zip", cloudEpoch.Add(time.Hour), packArchive(t, nil, map[int]string{2: "b"}))

	env.writeLocal(t, slotPathIn(saveDir, 1), "l1", cloudEpoch.Add(-time.Minute))
	env.writeLocal(t, saveDir+"/User4.DAT", "l4", cloudEpoch)
	env.writeLocal(t, saveDir+"/user7.dat", "ignored", cloudEpoch)

	got, err := env.engine.CompareAll(t.Context(), testGame, saveDir)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, 1, got[0].Slot)
	assert.Equal(t, StatusCloudNewer, got[0].Status)
	assert.Equal(t, "a.zip", got[0].Match.ArchiveName)

	assert.Equal(t, 2, got[1].Slot)
	assert.Equal(t, StatusCloudOnly, got[1].Status)
	assert.Equal(t, "b.zip", got[1].Match.ArchiveName)

	assert.Equal(t, 4, got[2].Slot)
	assert.Equal(t, StatusLocalOnly, got[2].Status)
	assert.Equal(t, saveDir+"/User4.DAT", got[2].LocalPath)

	// One listing, each archive downloaded once.
	assert.Equal(t, 2, store.downloads)
}

func TestScanLocal(t *testing.T) {
	env := newTestEnv(t, newFakeStore())

	env.writeLocal(t, saveDir+"/user2.dat", "b", cloudEpoch)
	env.writeLocal(t, saveDir+"/user1.dat", "a", cloudEpoch)
	env.writeLocal(t, saveDir+"/user1.dat.bak", "x", cloudEpoch)
	env.writeLocal(t, saveDir+"/settings.dat", "x", cloudEpoch)
	require.NoError(t, env.fs.MkdirAll(saveDir+"/user3.dat", 0o755))

	got, err := env.engine.ScanLocal(saveDir)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].Slot)
	assert.Equal(t, 2, got[1].Slot)
	assert.Equal(t, int64(1), got[1].Size)

	missing, err := env.engine.ScanLocal("/nowhere")
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func TestSlotPath(t *testing.T) {
	env := newTestEnv(t, newFakeStore())
	env.writeLocal(t, saveDir+"/USER2.DAT", "b", cloudEpoch)

	got, err := env.engine.SlotPath(saveDir, 2)
	require.NoError(t, err)
	assert.Equal(t, saveDir+"/USER2.DAT", got)

	got, err = env.engine.SlotPath(saveDir, 3)
	require.NoError(t, err)
	assert.Equal(t, saveDir+"/user3.dat", got)

	_, err = env.engine.SlotPath(saveDir, 0)
	assert.ErrorIs(t, err, ErrInvalidSlot)
}
