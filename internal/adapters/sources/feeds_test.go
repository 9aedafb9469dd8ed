package sources

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"testing"
	"testing/fstest"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zatekoja/facilitycollector/internal/infrastructure/clients/blob"
	"github.com/zatekoja/facilitycollector/pkg/config"
)

// fakeFeed serves canned documents by path
type fakeFeed struct {
	docs map[string]string
}

func (f *fakeFeed) GetJSON(ctx context.Context, path string, out interface{}) error {
	doc, ok := f.docs[path]
	if !ok {
		return fmt.Errorf("feed %s returned status 404", path)
	}
	return json.Unmarshal([]byte(doc), out)
}

func (f *fakeFeed) GetXML(ctx context.Context, path string, out interface{}) error {
	doc, ok := f.docs[path]
	if !ok {
		return fmt.Errorf("feed %s returned status 404", path)
	}
	return xml.Unmarshal([]byte(doc), out)
}

const waitTimesDoc = `[
	{"facilityID":"402","ApptTypeName":"Cardiology","newWaitTime":34.4,"estWaitTime":3.25,"sliceEndDate":"2020-03-09T00:00:00"},
	{"facilityID":"402","ApptTypeName":"Primary Care","newWaitTime":null,"estWaitTime":"1.5","sliceEndDate":"2020-03-09T00:00:00"},
	{"facilityID":"","ApptTypeName":"Audiology"}
]`

const cemeteriesDoc = `<?xml version="1.0"?>
<cems>
	<cem><station>915</station><cem_name>Abraham Lincoln National Cemetery</cem_name><city>Elwood</city><state>IL</state><lat>41.4</lat><long>-88.1</long></cem>
	<cem><station>  </station><cem_name>No station</cem_name></cem>
</cems>`

func TestWaitTimesFetch(t *testing.T) {
	feed := &fakeFeed{docs: map[string]string{"/wait": waitTimesDoc}}
	k := NewKeyed(config.SourceSpec{Name: config.SourceWaitTimes, Criticality: config.BestEffort}, WaitTimesFetch(feed, "/wait"), WaitTimeKey, zerolog.Nop()).
		WithServiceNames(WaitTimeServiceNames)
	require.NoError(t, k.Reload(context.Background()))

	recs := k.Lookup("vha_402")
	require.Len(t, recs, 2)
	assert.Equal(t, "34.4", recs[0].NewWaitTime.Decimal.String())
	assert.False(t, recs[1].NewWaitTime.Valid)
	assert.Equal(t, "1.5", recs[1].EstWaitTime.Decimal.String())
	assert.Equal(t, 1, k.Len())
	assert.Equal(t, []string{"Audiology", "Cardiology", "Primary Care"}, k.ServiceNamesObserved())
}

func TestSatisfactionFetch_FeedDownDegrades(t *testing.T) {
	feed := &fakeFeed{docs: map[string]string{}}
	k := NewKeyed(config.SourceSpec{Name: config.SourceSatisfaction, Criticality: config.BestEffort}, SatisfactionFetch(feed, "/sat"), SatisfactionKey, zerolog.Nop())

	require.NoError(t, k.Reload(context.Background()))
	assert.Zero(t, k.Len())
}

func TestCemeteriesFetch_PrefixesByOwnership(t *testing.T) {
	feed := &fakeFeed{docs: map[string]string{"cems.xml": cemeteriesDoc}}

	national := NewKeyed(config.SourceSpec{Name: config.SourceNationalCemeteries}, CemeteriesFetch(feed, "cems.xml", false), CemeteryKey, zerolog.Nop())
	state := NewKeyed(config.SourceSpec{Name: config.SourceStateCemeteries}, CemeteriesFetch(feed, "cems.xml", true), CemeteryKey, zerolog.Nop())
	require.NoError(t, national.Reload(context.Background()))
	require.NoError(t, state.Reload(context.Background()))

	assert.Equal(t, []string{"nca_915"}, national.Keys())
	assert.Equal(t, []string{"nca_s915"}, state.Keys())
	assert.Equal(t, "Abraham Lincoln National Cemetery", national.Lookup("nca_915")[0].Name)
}

func TestListFetches_ReadCSVFromBlobStore(t *testing.T) {
	store := blob.NewFSStoreFrom(fstest.MapFS{
		"websites.csv":    {Data: []byte("\ufeffID, URL\nvha_402,https://www.maine.va.gov/\nvha_405,\n\"vba_310e\",https://www.benefits.va.gov/philadelphia\n")},
		"orthopedics.csv": {Data: []byte("id\nvha_402\n\nvha_405\n")},
		"broken.csv":      {Data: []byte("station\n402\n")},
	})

	sites := NewKeyed(config.SourceSpec{Name: config.SourceWebsites}, WebsitesFetch(store, "websites.csv"), WebsiteKey, zerolog.Nop())
	require.NoError(t, sites.Reload(context.Background()))
	assert.Equal(t, []string{"vba_310e", "vha_402"}, sites.Keys())
	assert.Equal(t, "https://www.maine.va.gov/", sites.Lookup("vha_402")[0].URL)

	ortho := NewKeyed(config.SourceSpec{Name: config.SourceOrthopedics}, InclusionFetch(store, "orthopedics.csv"), InclusionKey, zerolog.Nop())
	require.NoError(t, ortho.Reload(context.Background()))
	assert.Equal(t, []string{"vha_402", "vha_405"}, ortho.Keys())

	_, err := InclusionFetch(store, "broken.csv")(context.Background())
	assert.ErrorContains(t, err, `missing column "id"`)

	_, err = InclusionFetch(store, "absent.csv")(context.Background())
	assert.Error(t, err)
}

func TestNewSet_UsesConfiguredCriticality(t *testing.T) {
	specs := config.DefaultSources()
	ws := specs[config.SourceWaitTimes]
	ws.Criticality = config.Critical
	specs[config.SourceWaitTimes] = ws

	set := NewSet(Deps{Feeds: &fakeFeed{}, Blob: blob.NewFSStoreFrom(fstest.MapFS{})}, specs, zerolog.Nop())

	assert.Len(t, set.Adapters(), 8)
	assert.True(t, set.Registry.Critical())
	assert.True(t, set.WaitTimes.Critical())
	assert.False(t, set.Satisfaction.Critical())
}
