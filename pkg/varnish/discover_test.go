package varnish_test

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/varnishstat-agent/pkg/varnish"
)

const (
	testGlob    = "/var/lib/varnish/*/_.vsm*"
	testPattern = `^/var/lib/varnish/([^/]+)/_.*`
)

func markerFS(t *testing.T, paths ...string) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	for _, p := range paths {
		require.NoError(t, afero.WriteFile(fs, p, []byte{}, 0o644))
	}
	return fs
}

func TestDiscovererDeduplicates(t *testing.T) {
	fs := markerFS(t,
		"/var/lib/varnish/vhost2/_.vsm_mgt",
		"/var/lib/varnish/vhost2/_.vsm_child",
		"/var/lib/varnish/vhost1/_.vsm",
		"/var/lib/varnish/vhost1/other.file",
		"/var/lib/varnish/empty/readme",
	)

	d, err := varnish.NewDiscoverer(fs, testGlob, testPattern, nil)
	require.NoError(t, err)

	names, err := d.Instances(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"vhost1", "vhost2"}, names)
}

func TestDiscovererNoMarkers(t *testing.T) {
	d, err := varnish.NewDiscoverer(afero.NewMemMapFs(), testGlob, testPattern, nil)
	require.NoError(t, err)

	names, err := d.Instances(context.Background())
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestDiscovererSkipsUnmatchedPaths(t *testing.T) {
	fs := markerFS(t, "/var/lib/varnish/vhost1/_.vsm")

	d, err := varnish.NewDiscoverer(fs, testGlob, `^/srv/varnish/([^/]+)/_.*`, nil)
	require.NoError(t, err)

	names, err := d.Instances(context.Background())
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestNewDiscovererRejectsPattern(t *testing.T) {
	_, err := varnish.NewDiscoverer(afero.NewMemMapFs(), testGlob, `^/var/lib/varnish/.*`, nil)
	assert.Error(t, err)

	_, err = varnish.NewDiscoverer(afero.NewMemMapFs(), testGlob, `(`, nil)
	assert.Error(t, err)
}

func TestDiscovererBadGlob(t *testing.T) {
	d, err := varnish.NewDiscoverer(afero.NewMemMapFs(), "/var/lib/[", testPattern, nil)
	require.NoError(t, err)

	_, err = d.Instances(context.Background())
	assert.Error(t, err)
}

func TestStaticInstances(t *testing.T) {
	names, err := varnish.StaticInstances{"b", "a", "b"}.Instances(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, names)

	names, err = varnish.ImplicitInstance{}.Instances(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{""}, names)
}

func TestRunningFilter(t *testing.T) {
	source := varnish.StaticInstances{"vhost1", "vhost2", "stale", "varnishd"}
	list := func(context.Context) ([][]string, error) {
		return [][]string{
			{"/usr/sbin/varnishd", "-a", ":80", "-n", "/var/lib/varnish/vhost1"},
			{"/usr/sbin/varnishd", "-nvhost2", "-f", "/etc/varnish/default.vcl"},
			{"/usr/sbin/varnishd", "-a", ":6081"},
		}, nil
	}

	f := varnish.NewRunningFilter(source, list, nil)
	names, err := f.Instances(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"vhost1", "vhost2", "varnishd"}, names)
}

func TestRunningFilterListError(t *testing.T) {
	list := func(context.Context) ([][]string, error) {
		return nil, assert.AnError
	}
	f := varnish.NewRunningFilter(varnish.StaticInstances{"a"}, list, nil)
	_, err := f.Instances(context.Background())
	assert.ErrorIs(t, err, assert.AnError)
}
