package ucsm

import (
	"context"
	"encoding/xml"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeXMLAPI answers XML API methods with canned bodies and records requests.
type fakeXMLAPI struct {
	mu        sync.Mutex
	responses map[string]string
	requests  map[string][]string
}

func newFakeXMLAPI(responses map[string]string) *fakeXMLAPI {
	return &fakeXMLAPI{responses: responses, requests: map[string][]string{}}
}

func (f *fakeXMLAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != apiPath {
		http.NotFound(w, r)
		return
	}

	body, _ := io.ReadAll(r.Body)

	method := ""
	decoder := xml.NewDecoder(strings.NewReader(string(body)))

	for {
		tok, err := decoder.Token()
		if err != nil {
			break
		}

		if start, ok := tok.(xml.StartElement); ok {
			method = start.Name.Local
			break
		}
	}

	f.mu.Lock()
	f.requests[method] = append(f.requests[method], string(body))
	resp, ok := f.responses[method]
	f.mu.Unlock()

	if !ok {
		resp = `<` + method + ` response="yes" errorCode="552" errorDescr="unsupported"/>`
	}

	w.Header().Set("Content-Type", "application/xml")
	_, _ = io.WriteString(w, resp)
}

func (f *fakeXMLAPI) lastRequest(method string) string {
	f.mu.Lock()
	defer f.mu.Unlock()

	reqs := f.requests[method]
	if len(reqs) == 0 {
		return ""
	}

	return reqs[len(reqs)-1]
}

func newTestXMLPlane() *XMLPlane {
	return NewXMLPlane(Config{RetryMax: 1}, logrus.NewEntry(logrus.New()))
}

func TestEndpointURL(t *testing.T) {
	assert.Equal(t, "https://10.0.0.2/nuova", endpointURL("10.0.0.2"))
	assert.Equal(t, "http://127.0.0.1:8080/nuova", endpointURL("http://127.0.0.1:8080/"))
}

func TestXMLPlaneSession(t *testing.T) {
	api := newFakeXMLAPI(map[string]string{
		"aaaLogin":  `<aaaLogin response="yes" outCookie="1234/abcd" outRefreshPeriod="600"/>`,
		"aaaLogout": `<aaaLogout response="yes" outStatus="success"/>`,
		"configResolveDn": `<configResolveDn dn="org-root/org-kubam" cookie="1234/abcd" response="yes">
<outConfig><orgOrg dn="org-root/org-kubam" name="kubam" descr="KUBAM org"/></outConfig>
</configResolveDn>`,
		"configResolveClass": `<?xml version="1.0" encoding="ISO-8859-1"?>
<configResolveClass cookie="1234/abcd" response="yes" classId="fabricVlan">
<outConfigs>
<fabricVlan dn="fabric/lan/net-default" name="default" id="1"/>
<fabricVlan dn="fabric/lan/net-kubam" name="kubam" id="100"/>
</outConfigs>
</configResolveClass>`,
		"configConfMos": `<configConfMos cookie="1234/abcd" response="yes"><outConfigs/></configConfMos>`,
	})

	server := httptest.NewServer(api)
	defer server.Close()

	ctx := context.Background()

	handle, err := newTestXMLPlane().Login(ctx, "admin", "secret", server.URL)
	require.NoError(t, err)
	assert.Contains(t, api.lastRequest("aaaLogin"), `inName="admin"`)

	mo, err := handle.QueryDn(ctx, "org-root/org-kubam")
	require.NoError(t, err)
	require.NotNil(t, mo)
	assert.Equal(t, "orgOrg", mo.Class)
	assert.Equal(t, "KUBAM org", mo.Attr("descr"))
	assert.Contains(t, api.lastRequest("configResolveDn"), `cookie="1234/abcd"`)

	vlans, err := handle.QueryClass(ctx, "fabricVlan")
	require.NoError(t, err)
	require.Len(t, vlans, 2)
	assert.Equal(t, "100", vlans[1].Attr("id"))

	handle.AddMo(NewMo("orgOrg", "org-root/org-lab", map[string]string{"name": "lab"}), false)
	require.NoError(t, handle.Commit(ctx))

	commit := api.lastRequest("configConfMos")
	assert.Contains(t, commit, `<pair key="org-root/org-lab">`)
	assert.Contains(t, commit, `<orgOrg dn="org-root/org-lab" name="lab" status="created"></orgOrg>`)

	require.NoError(t, handle.Logout(ctx))
	require.NoError(t, handle.Logout(ctx))

	_, err = handle.QueryDn(ctx, "org-root")
	assert.ErrorIs(t, err, ErrNotLoggedIn)
}

func TestXMLPlaneQueryDnAbsent(t *testing.T) {
	api := newFakeXMLAPI(map[string]string{
		"aaaLogin":        `<aaaLogin response="yes" outCookie="1234/abcd"/>`,
		"configResolveDn": `<configResolveDn dn="org-root/org-none" response="yes"><outConfig></outConfig></configResolveDn>`,
	})

	server := httptest.NewServer(api)
	defer server.Close()

	ctx := context.Background()

	handle, err := newTestXMLPlane().Login(ctx, "admin", "secret", server.URL)
	require.NoError(t, err)

	mo, err := handle.QueryDn(ctx, "org-root/org-none")
	require.NoError(t, err)
	assert.Nil(t, mo)
}

func TestXMLPlaneRejections(t *testing.T) {
	api := newFakeXMLAPI(map[string]string{
		"aaaLogin": `<aaaLogin response="yes" errorCode="551" invocationResult="unidentified-fail" errorDescr="Authentication failed"/>`,
	})

	server := httptest.NewServer(api)
	defer server.Close()

	_, err := newTestXMLPlane().Login(context.Background(), "admin", "wrong", server.URL)

	re, ok := AsRemoteError(err)
	require.True(t, ok)
	assert.Equal(t, ErrCodeAuthentication, re.Code)
	assert.Equal(t, "Authentication failed", re.Description)
}

func TestXMLPlaneCommitAlreadyExists(t *testing.T) {
	api := newFakeXMLAPI(map[string]string{
		"aaaLogin":      `<aaaLogin response="yes" outCookie="1234/abcd"/>`,
		"configConfMos": `<configConfMos cookie="1234/abcd" response="yes" errorCode="103" invocationResult="unidentified-fail" errorDescr="can't create; object already exists."/>`,
	})

	server := httptest.NewServer(api)
	defer server.Close()

	ctx := context.Background()

	handle, err := newTestXMLPlane().Login(ctx, "admin", "secret", server.URL)
	require.NoError(t, err)

	handle.AddMo(NewMo("orgOrg", "org-root/org-lab", nil), false)
	assert.True(t, IsAlreadyExists(handle.Commit(ctx)))
}

func TestXMLPlaneInvalidResponse(t *testing.T) {
	api := newFakeXMLAPI(map[string]string{
		"aaaLogin": `not xml at all <`,
	})

	server := httptest.NewServer(api)
	defer server.Close()

	_, err := newTestXMLPlane().Login(context.Background(), "admin", "secret", server.URL)
	assert.ErrorIs(t, err, ErrInvalidResponse)
}

func TestManagedObjectXML(t *testing.T) {
	mo := NewMo("lsServer", "org-root/ls-kube01", map[string]string{"name": "kube01", "type": "instance"},
		NewMo("lsBinding", "org-root/ls-kube01/pn", map[string]string{"pnDn": "sys/chassis-1/blade-1"}))
	mo.Status = StatusCreated

	data, err := xml.Marshal(mo)
	require.NoError(t, err)
	assert.Equal(t,
		`<lsServer dn="org-root/ls-kube01" name="kube01" type="instance" status="created">`+
			`<lsBinding dn="org-root/ls-kube01/pn" pnDn="sys/chassis-1/blade-1"></lsBinding></lsServer>`,
		string(data))

	decoded := &ManagedObject{}
	require.NoError(t, xml.Unmarshal(data, decoded))
	assert.Equal(t, "lsServer", decoded.Class)
	assert.Equal(t, StatusCreated, decoded.Status)
	require.Len(t, decoded.Children, 1)
	assert.Equal(t, "sys/chassis-1/blade-1", decoded.Children[0].Attr("pnDn"))
}
