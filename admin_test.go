package sharedserver

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAdminDoctorRemovesDeadServer(t *testing.T) {
	dir := t.TempDir()
	p := publishServer(t, dir, "web", deadPID(t), os.Getpid())
	clients := NewClientsRecord(100, "")
	require.NoError(t, atomicPublish(p.ClientsFile, clients))

	report, err := AdminDoctor(dir, "web")
	require.NoError(t, err)
	require.NotEmpty(t, report.Actions)

	_, err = os.Stat(p.ServerFile)
	require.True(t, os.IsNotExist(err), "expected server record to be removed")
	_, err = os.Stat(p.ClientsFile)
	require.True(t, os.IsNotExist(err), "expected clients record to be removed")
}

func TestAdminDoctorRemovesOrphanedClients(t *testing.T) {
	dir := t.TempDir()
	p, err := PathsFor(dir, "web")
	require.NoError(t, err)
	clients := NewClientsRecord(100, "")
	require.NoError(t, atomicPublish(p.ClientsFile, clients))

	report, err := AdminDoctor(dir, "web")
	require.NoError(t, err)
	require.NotEmpty(t, report.Actions)

	_, err = os.Stat(p.ClientsFile)
	require.True(t, os.IsNotExist(err), "expected orphaned clients record to be removed")
}

func TestAdminDoctorRecomputesRefcount(t *testing.T) {
	dir := t.TempDir()
	p := publishServer(t, dir, "web", os.Getpid(), os.Getpid())

	clients := &ClientsRecord{
		Version:  RecordVersion,
		Refcount: 5,
		Clients: map[string]ClientEntry{
			pidKey(os.Getpid()): {AttachedAt: 1},
			"999999":            {AttachedAt: 1},
		},
	}
	require.NoError(t, atomicPublish(p.ClientsFile, clients))

	report, err := AdminDoctor(dir, "web")
	require.NoError(t, err)
	require.NotEmpty(t, report.Actions, "expected doctor to report a correction")

	var after ClientsRecord
	require.NoError(t, tolerantRead(p.ClientsFile, &after))
	require.Equal(t, 1, after.Refcount)
	require.NotContains(t, after.Clients, "999999", "expected dead pid to be pruned")
}

func TestAdminDoctorLeavesHealthyRecordAlone(t *testing.T) {
	dir := t.TempDir()
	p := publishServer(t, dir, "web", os.Getpid(), os.Getpid())
	clients := NewClientsRecord(os.Getpid(), "")
	require.NoError(t, atomicPublish(p.ClientsFile, clients))

	report, err := AdminDoctor(dir, "web")
	require.NoError(t, err)
	require.Empty(t, report.Actions)
}

func TestAdminKillUnlinksRecords(t *testing.T) {
	dir := t.TempDir()
	p := publishServer(t, dir, "web", deadPID(t), deadPID(t))
	clients := NewClientsRecord(100, "")
	require.NoError(t, atomicPublish(p.ClientsFile, clients))

	require.NoError(t, AdminKill(dir, "web"))

	_, err := os.Stat(p.ServerFile)
	require.True(t, os.IsNotExist(err), "expected server record to be removed")
	_, err = os.Stat(p.ClientsFile)
	require.True(t, os.IsNotExist(err), "expected clients record to be removed")
}

func TestAdminDoctorAllAggregatesAcrossNames(t *testing.T) {
	dir := t.TempDir()
	publishServer(t, dir, "healthy", os.Getpid(), os.Getpid())
	publishServer(t, dir, "dead", deadPID(t), os.Getpid())

	reports, err := AdminDoctorAll(dir)
	require.NoError(t, err)
	require.Len(t, reports, 2)
}
