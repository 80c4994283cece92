package ucsm

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/xml"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/net/html/charset"

	"github.com/metal-toolbox/kubam/internal/log"
	"github.com/metal-toolbox/kubam/internal/metrics"
)

const (
	apiPath = "/nuova"

	defaultTimeout  = 30 * time.Second
	defaultRetryMax = 2
)

// Config holds the XML API client parameters.
type Config struct {
	Timeout     time.Duration
	RetryMax    int
	InsecureTLS bool
}

// XMLPlane talks to the management plane XML API over HTTP(S).
type XMLPlane struct {
	client *retryablehttp.Client
	logger *logrus.Entry
}

// NewXMLPlane returns a Plane backed by the XML API.
func NewXMLPlane(cfg Config, logger *logrus.Entry) *XMLPlane {
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}

	if cfg.RetryMax == 0 {
		cfg.RetryMax = defaultRetryMax
	}

	client := retryablehttp.NewClient()
	client.RetryMax = cfg.RetryMax
	client.Logger = &leveledLogger{logger}
	client.HTTPClient.Timeout = cfg.Timeout

	if transport, ok := client.HTTPClient.Transport.(*http.Transport); ok && cfg.InsecureTLS {
		// nolint:gosec // fabric interconnects commonly ship self signed certificates.
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	client.HTTPClient.Transport = otelhttp.NewTransport(client.HTTPClient.Transport)

	return &XMLPlane{
		client: client,
		logger: logger,
	}
}

// Login implements Plane.
func (p *XMLPlane) Login(ctx context.Context, user, password, address string) (Handle, error) {
	h := &xmlHandle{
		plane:    p,
		endpoint: endpointURL(address),
	}

	resp, err := h.call(ctx, "aaaLogin", &loginRequest{Name: user, Password: password})
	if err != nil {
		return nil, err
	}

	if resp.OutCookie == "" {
		return nil, errors.Wrap(ErrLoginRejected, "no session cookie returned")
	}

	h.cookie = resp.OutCookie

	return h, nil
}

func endpointURL(address string) string {
	address = strings.TrimSuffix(address, "/")
	if strings.Contains(address, "://") {
		return address + apiPath
	}

	return "https://" + address + apiPath
}

type xmlHandle struct {
	plane    *XMLPlane
	endpoint string
	cookie   string
	pending  []*ManagedObject
}

func (h *xmlHandle) Logout(ctx context.Context) error {
	if h.cookie == "" {
		return nil
	}

	_, err := h.call(ctx, "aaaLogout", &logoutRequest{Cookie: h.cookie})
	h.cookie = ""
	h.pending = nil

	return err
}

func (h *xmlHandle) QueryDn(ctx context.Context, dn string) (*ManagedObject, error) {
	if h.cookie == "" {
		return nil, ErrNotLoggedIn
	}

	resp, err := h.call(ctx, "configResolveDn", &resolveDnRequest{Cookie: h.cookie, Dn: dn, Hierarchical: "false"})
	if err != nil {
		return nil, err
	}

	if len(resp.OutConfig.Objects) == 0 {
		return nil, nil
	}

	return resp.OutConfig.Objects[0], nil
}

func (h *xmlHandle) QueryClass(ctx context.Context, classID string) ([]*ManagedObject, error) {
	if h.cookie == "" {
		return nil, ErrNotLoggedIn
	}

	resp, err := h.call(ctx, "configResolveClass", &resolveClassRequest{Cookie: h.cookie, ClassID: classID, Hierarchical: "false"})
	if err != nil {
		return nil, err
	}

	return resp.OutConfigs.Objects, nil
}

func (h *xmlHandle) AddMo(mo *ManagedObject, modifyPresent bool) {
	staged := mo.Clone()
	staged.Status = StatusCreated

	if modifyPresent {
		staged.Status = StatusCreatedModified
	}

	h.pending = append(h.pending, staged)
}

func (h *xmlHandle) RemoveMo(mo *ManagedObject) {
	h.pending = append(h.pending, &ManagedObject{Class: mo.Class, Dn: mo.Dn, Status: StatusDeleted})
}

func (h *xmlHandle) Commit(ctx context.Context) error {
	if h.cookie == "" {
		return ErrNotLoggedIn
	}

	if len(h.pending) == 0 {
		return nil
	}

	req := &confMosRequest{Cookie: h.cookie, Hierarchical: "true"}
	for _, mo := range h.pending {
		req.Pairs = append(req.Pairs, confPair{Key: mo.Dn, Mo: mo})
	}

	h.pending = nil

	_, err := h.call(ctx, "configConfMos", req)

	return err
}

// call posts one XML API method and decodes the response, returning a
// *RemoteError when the plane reports an error code.
func (h *xmlHandle) call(ctx context.Context, method string, request any) (*apiResponse, error) {
	body, err := xml.Marshal(request)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal "+method)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(ErrTransport, err.Error())
	}

	req.Header.Set("Content-Type", "application/xml")

	httpResp, err := h.plane.client.Do(req)
	if err != nil {
		metrics.RegisterRemoteCall(method, "transport-error")
		return nil, errors.Wrap(ErrTransport, err.Error())
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		metrics.RegisterRemoteCall(method, "transport-error")
		return nil, errors.Wrap(ErrTransport, method+": "+httpResp.Status)
	}

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, errors.Wrap(ErrTransport, err.Error())
	}

	decoder := xml.NewDecoder(bytes.NewReader(raw))
	decoder.CharsetReader = charset.NewReaderLabel

	resp := &apiResponse{}
	if err := decoder.Decode(resp); err != nil {
		metrics.RegisterRemoteCall(method, "invalid-response")
		return nil, errors.Wrap(ErrInvalidResponse, err.Error())
	}

	if resp.ErrorCode != "" {
		metrics.RegisterRemoteCall(method, "rejected")
		return nil, &RemoteError{Code: resp.ErrorCode, Description: resp.ErrorDescr}
	}

	metrics.RegisterRemoteCall(method, "ok")

	return resp, nil
}

type loginRequest struct {
	XMLName  xml.Name `xml:"aaaLogin"`
	Name     string   `xml:"inName,attr"`
	Password string   `xml:"inPassword,attr"`
}

type logoutRequest struct {
	XMLName xml.Name `xml:"aaaLogout"`
	Cookie  string   `xml:"inCookie,attr"`
}

type resolveDnRequest struct {
	XMLName      xml.Name `xml:"configResolveDn"`
	Cookie       string   `xml:"cookie,attr"`
	Dn           string   `xml:"dn,attr"`
	Hierarchical string   `xml:"inHierarchical,attr"`
}

type resolveClassRequest struct {
	XMLName      xml.Name `xml:"configResolveClass"`
	Cookie       string   `xml:"cookie,attr"`
	ClassID      string   `xml:"classId,attr"`
	Hierarchical string   `xml:"inHierarchical,attr"`
}

type confMosRequest struct {
	XMLName      xml.Name   `xml:"configConfMos"`
	Cookie       string     `xml:"cookie,attr"`
	Hierarchical string     `xml:"inHierarchical,attr"`
	Pairs        []confPair `xml:"inConfigs>pair"`
}

type confPair struct {
	Key string `xml:"key,attr"`
	Mo  *ManagedObject
}

type apiResponse struct {
	XMLName    xml.Name
	Cookie     string `xml:"cookie,attr"`
	OutCookie  string `xml:"outCookie,attr"`
	ErrorCode  string `xml:"errorCode,attr"`
	ErrorDescr string `xml:"errorDescr,attr"`
	OutConfig  moList `xml:"outConfig"`
	OutConfigs moList `xml:"outConfigs"`
}

type moList struct {
	Objects []*ManagedObject `xml:",any"`
}

// leveledLogger adapts a logrus entry to retryablehttp.LeveledLogger.
type leveledLogger struct {
	entry *logrus.Entry
}

func (l *leveledLogger) fields(keysAndValues []interface{}) *logrus.Entry {
	return l.entry.WithFields(log.Fields(keysAndValues))
}

func (l *leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.fields(keysAndValues).Error(msg)
}

func (l *leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	l.fields(keysAndValues).Debug(msg)
}

func (l *leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.fields(keysAndValues).Trace(msg)
}

func (l *leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.fields(keysAndValues).Warn(msg)
}
