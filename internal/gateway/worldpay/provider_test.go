package worldpay_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DanielPopoola/pay-connector/internal/config"
	"github.com/DanielPopoola/pay-connector/internal/domain"
	"github.com/DanielPopoola/pay-connector/internal/gateway"
	"github.com/DanielPopoola/pay-connector/internal/gateway/worldpay"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const authorisedReply = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE paymentService PUBLIC "-//WorldPay//DTD WorldPay PaymentService v1//EN" "http://dtd.worldpay.com/paymentService_v1.dtd">
<paymentService version="1.4" merchantCode="MERCHANTCODE">
  <reply>
    <orderStatus orderCode="tx-123">
      <payment>
        <paymentMethod>VISA-SSL</paymentMethod>
        <amount value="500" currencyCode="GBP" exponent="2" debitCreditIndicator="credit"/>
        <lastEvent>AUTHORISED</lastEvent>
      </payment>
    </orderStatus>
  </reply>
</paymentService>`

const threeDSReply = `<?xml version="1.0" encoding="UTF-8"?>
<paymentService version="1.4" merchantCode="MERCHANTCODE">
  <reply>
    <orderStatus orderCode="tx-123">
      <requestInfo>
        <request3DSecure>
          <paRequest>pa-request-value</paRequest>
          <issuerURL><![CDATA[https://issuer.example/3ds]]></issuerURL>
        </request3DSecure>
      </requestInfo>
      <echoData>echo-123</echoData>
    </orderStatus>
  </reply>
</paymentService>`

const errorReply = `<?xml version="1.0" encoding="UTF-8"?>
<paymentService version="1.4" merchantCode="MERCHANTCODE">
  <reply>
    <error code="5"><![CDATA[Order has already been paid]]></error>
  </reply>
</paymentService>`

const captureReply = `<?xml version="1.0" encoding="UTF-8"?>
<paymentService version="1.4" merchantCode="MERCHANTCODE">
  <reply>
    <ok>
      <captureReceived orderCode="tx-123">
        <amount value="500" currencyCode="GBP" exponent="2" debitCreditIndicator="credit"/>
      </captureReceived>
    </ok>
  </reply>
</paymentService>`

const cancelReply = `<?xml version="1.0" encoding="UTF-8"?>
<paymentService version="1.4" merchantCode="MERCHANTCODE">
  <reply><ok><cancelReceived orderCode="tx-123"/></ok></reply>
</paymentService>`

const refundReply = `<?xml version="1.0" encoding="UTF-8"?>
<paymentService version="1.4" merchantCode="MERCHANTCODE">
  <reply><ok><refundReceived orderCode="tx-123"/></ok></reply>
</paymentService>`

type recordedRequest struct {
	body   string
	header http.Header
}

func newServer(t *testing.T, status int, body string, cookie string) (*httptest.Server, *[]recordedRequest) {
	t.Helper()
	var requests []recordedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		requests = append(requests, recordedRequest{body: string(b), header: r.Header.Clone()})
		if cookie != "" {
			http.SetCookie(w, &http.Cookie{Name: "machine", Value: cookie})
		}
		w.Header().Set("Content-Type", "text/xml")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &requests
}

func newProvider(t *testing.T, url string, opts ...worldpay.Option) *worldpay.Provider {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	factory := gateway.NewClientFactoryWithHTTPClient(&http.Client{Timeout: 2 * time.Second}, nil, logger)
	cfg := config.WorldpayConfig{URLs: config.GatewayURLs{Test: url}}
	return worldpay.New(cfg, factory, logger, opts...)
}

func account() domain.GatewayAccount {
	return domain.GatewayAccount{
		ID:          "acc-1",
		GatewayName: domain.GatewayWorldpay,
		Type:        domain.AccountTypeTest,
		Credentials: map[string]string{
			domain.CredentialUsername:   "user",
			domain.CredentialPassword:   "pass",
			domain.CredentialMerchantID: "MERCHANTCODE",
		},
	}
}

func charge() domain.Charge {
	return domain.Charge{
		ExternalID:           "ext-123",
		Amount:               500,
		Description:          "This is the description",
		GatewayTransactionID: "tx-123",
	}
}

func authRequest() gateway.AuthorisationRequest {
	return gateway.AuthorisationRequest{
		Charge:  charge(),
		Account: account(),
		Card: domain.CardDetails{
			CardNumber:     "4111111111111111",
			CVC:            "123",
			EndDate:        "12/30",
			CardholderName: "Mr Payment",
			Address: &domain.Address{
				Line1:    "123 My Street",
				Postcode: "SW8URR",
				City:     "London",
				Country:  "GB",
			},
		},
	}
}

func TestAuthorise_Success(t *testing.T) {
	srv, requests := newServer(t, http.StatusOK, authorisedReply, "machine-cookie")
	p := newProvider(t, srv.URL)

	resp := p.Authorise(context.Background(), authRequest())

	require.True(t, resp.IsSuccessful(), "%v", resp.Err())
	assert.Equal(t, gateway.AuthoriseAuthorised, resp.Value().Status)
	assert.Equal(t, "tx-123", resp.Value().TransactionID)
	assert.Equal(t, "machine-cookie", resp.SessionIdentifier())

	require.Len(t, *requests, 1)
	sent := (*requests)[0]
	user, pass, ok := (&http.Request{Header: sent.header}).BasicAuth()
	require.True(t, ok)
	assert.Equal(t, "user", user)
	assert.Equal(t, "pass", pass)
	assert.Equal(t, gateway.MediaTypeXML, sent.header.Get("Content-Type"))
	assert.True(t, strings.HasPrefix(sent.body, `<?xml version="1.0" encoding="UTF-8"?>`))
	assert.Contains(t, sent.body, `<!DOCTYPE paymentService`)
	assert.Contains(t, sent.body, `<paymentService version="1.4" merchantCode="MERCHANTCODE">`)
	assert.Contains(t, sent.body, `<order orderCode="tx-123">`)
	assert.Contains(t, sent.body, `<amount currencyCode="GBP" exponent="2" value="500"></amount>`)
	assert.Contains(t, sent.body, `<cardNumber>4111111111111111</cardNumber>`)
	assert.Contains(t, sent.body, `<date month="12" year="2030"></date>`)
	assert.Contains(t, sent.body, `<address><address1>123 My Street</address1><postalCode>SW8URR</postalCode><city>London</city><countryCode>GB</countryCode></address>`)
	assert.Contains(t, sent.body, `<session id="ext-123"></session>`)
}

func TestAuthorise_Requires3DS(t *testing.T) {
	srv, _ := newServer(t, http.StatusOK, threeDSReply, "")
	p := newProvider(t, srv.URL)

	resp := p.Authorise(context.Background(), authRequest())

	require.True(t, resp.IsSuccessful())
	assert.Equal(t, gateway.AuthoriseRequires3DS, resp.Value().Status)
	require.NotNil(t, resp.Value().Auth3DS)
	assert.Equal(t, "pa-request-value", resp.Value().Auth3DS.PaRequest)
	assert.Equal(t, "https://issuer.example/3ds", resp.Value().Auth3DS.IssuerURL)
	assert.Equal(t, "echo-123", resp.Value().Auth3DS.MD)
}

func TestAuthorise_ErrorReply(t *testing.T) {
	srv, _ := newServer(t, http.StatusOK, errorReply, "")
	p := newProvider(t, srv.URL)

	resp := p.Authorise(context.Background(), authRequest())

	require.False(t, resp.IsSuccessful())
	assert.Equal(t, gateway.KindGateway, resp.Err().Kind)
	assert.Equal(t, "5", resp.Err().Code)
	assert.Equal(t, "Order has already been paid", resp.Err().Message)
}

func TestAuthorise_UnexpectedStatus(t *testing.T) {
	srv, _ := newServer(t, http.StatusInternalServerError, "boom", "")
	p := newProvider(t, srv.URL)

	resp := p.Authorise(context.Background(), authRequest())

	require.False(t, resp.IsSuccessful())
	assert.Equal(t, gateway.KindGateway, resp.Err().Kind)
	assert.Equal(t, "HTTP_500", resp.Err().Code)
}

func TestAuthorise_MalformedBody(t *testing.T) {
	srv, _ := newServer(t, http.StatusOK, "<paymentService><reply>", "")
	p := newProvider(t, srv.URL)

	resp := p.Authorise(context.Background(), authRequest())

	require.False(t, resp.IsSuccessful())
	assert.Equal(t, gateway.KindParse, resp.Err().Kind)
}

func TestAuthorise_TransportError(t *testing.T) {
	srv, _ := newServer(t, http.StatusOK, authorisedReply, "")
	url := srv.URL
	srv.Close()
	p := newProvider(t, url)

	resp := p.Authorise(context.Background(), authRequest())

	require.False(t, resp.IsSuccessful())
	assert.Equal(t, gateway.KindTransport, resp.Err().Kind)
	assert.True(t, resp.Err().IsRetryable())
}

func TestAuthorise3DS_PinsSessionCookie(t *testing.T) {
	srv, requests := newServer(t, http.StatusOK, authorisedReply, "")
	p := newProvider(t, srv.URL)

	c := charge()
	c.ProviderSessionID = "machine-cookie"
	resp := p.Authorise3DSResponse(context.Background(), gateway.Auth3DSRequest{
		Charge:  c,
		Account: account(),
		Result:  domain.Auth3DSResult{PaResponse: "pa-response"},
	})

	require.True(t, resp.IsSuccessful())
	assert.Equal(t, gateway.AuthoriseAuthorised, resp.Value().Status)

	require.Len(t, *requests, 1)
	sent := (*requests)[0]
	assert.Equal(t, "machine=machine-cookie", sent.header.Get("Cookie"))
	assert.Contains(t, sent.body, `<info3DSecure><paResponse>pa-response</paResponse></info3DSecure>`)
}

func TestCapture(t *testing.T) {
	srv, requests := newServer(t, http.StatusOK, captureReply, "")
	fixed := func() time.Time { return time.Date(2024, 2, 7, 10, 0, 0, 0, time.UTC) }
	p := newProvider(t, srv.URL, worldpay.WithClock(fixed))

	resp := p.Capture(context.Background(), gateway.CaptureRequest{Charge: charge(), Account: account()})

	require.True(t, resp.IsSuccessful())
	assert.Equal(t, "tx-123", resp.Value().TransactionID)
	assert.Equal(t, gateway.CapturePending, resp.Value().State)
	assert.Contains(t, (*requests)[0].body,
		`<orderModification orderCode="tx-123"><capture><date dayOfMonth="07" month="02" year="2024"></date><amount currencyCode="GBP" exponent="2" value="500"></amount></capture></orderModification>`)
}

func TestCapture_Unacknowledged(t *testing.T) {
	srv, _ := newServer(t, http.StatusOK, cancelReply, "")
	p := newProvider(t, srv.URL)

	resp := p.Capture(context.Background(), gateway.CaptureRequest{Charge: charge(), Account: account()})

	require.False(t, resp.IsSuccessful())
	assert.Equal(t, "UNEXPECTED_RESPONSE", resp.Err().Code)
}

func TestCancel(t *testing.T) {
	srv, requests := newServer(t, http.StatusOK, cancelReply, "")
	p := newProvider(t, srv.URL)

	resp := p.Cancel(context.Background(), gateway.CancelRequest{Charge: charge(), Account: account()})

	require.True(t, resp.IsSuccessful())
	assert.Contains(t, (*requests)[0].body, `<orderModification orderCode="tx-123"><cancel></cancel></orderModification>`)
}

func TestRefund(t *testing.T) {
	srv, requests := newServer(t, http.StatusOK, refundReply, "")
	p := newProvider(t, srv.URL)

	resp := p.Refund(context.Background(), gateway.RefundRequest{
		Charge:  charge(),
		Account: account(),
		Refund:  domain.Refund{ExternalID: "refund-1", Amount: 200},
	})

	require.True(t, resp.IsSuccessful())
	assert.Equal(t, "refund-1", resp.Value().Reference)
	assert.Contains(t, (*requests)[0].body, `<refund reference="refund-1"><amount currencyCode="GBP" exponent="2" value="200"></amount></refund>`)
}

func TestNoEndpointConfigured(t *testing.T) {
	p := newProvider(t, "")

	resp := p.Authorise(context.Background(), authRequest())

	require.False(t, resp.IsSuccessful())
	assert.Equal(t, "NO_ENDPOINT", resp.Err().Code)
}

const capturedNotification = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE paymentService PUBLIC "-//WorldPay//DTD WorldPay PaymentService v1//EN" "http://dtd.worldpay.com/paymentService_v1.dtd">
<paymentService version="1.4" merchantCode="MERCHANTCODE">
  <notify>
    <orderStatusEvent orderCode="tx-123">
      <payment>
        <paymentMethod>VISA-SSL</paymentMethod>
        <lastEvent>CAPTURED</lastEvent>
        <riskScore value="0"/>
      </payment>
      <journal journalType="CAPTURED">
        <bookingDate><date dayOfMonth="10" month="01" year="2017"/></bookingDate>
      </journal>
    </orderStatusEvent>
  </notify>
</paymentService>`

const refundedNotification = `<?xml version="1.0" encoding="UTF-8"?>
<paymentService version="1.4" merchantCode="MERCHANTCODE">
  <notify>
    <orderStatusEvent orderCode="tx-123">
      <payment><lastEvent>REFUNDED</lastEvent></payment>
      <journal journalType="REFUNDED">
        <journalReference type="refund" reference="refund-1"/>
      </journal>
    </orderStatusEvent>
  </notify>
</paymentService>`

func TestParseNotification(t *testing.T) {
	p := newProvider(t, "")

	t.Run("captured", func(t *testing.T) {
		notifications, err := p.ParseNotification(gateway.InboundNotification{Payload: []byte(capturedNotification)})

		require.NoError(t, err)
		require.Len(t, notifications, 1)
		n := notifications[0]
		assert.Equal(t, "tx-123", n.TransactionID)
		assert.Equal(t, "CAPTURED", n.Status)
		assert.Equal(t, time.Date(2017, 1, 10, 0, 0, 0, 0, time.UTC), n.EventDate)
		assert.True(t, p.VerifyNotification(n, account()))

		mapped := p.StatusMapper().Map(n.Status)
		assert.Equal(t, gateway.MappingCharge, mapped.Kind)
		assert.Equal(t, domain.StatusCaptured, mapped.ChargeStatus)
	})

	t.Run("refunded carries refund reference", func(t *testing.T) {
		notifications, err := p.ParseNotification(gateway.InboundNotification{Payload: []byte(refundedNotification)})

		require.NoError(t, err)
		require.Len(t, notifications, 1)
		assert.Equal(t, "refund-1", notifications[0].Reference)
		assert.Equal(t, gateway.MappingRefund, p.StatusMapper().Map("REFUNDED").Kind)
	})

	t.Run("other merchant is rejected", func(t *testing.T) {
		notifications, err := p.ParseNotification(gateway.InboundNotification{Payload: []byte(capturedNotification)})
		require.NoError(t, err)

		other := account()
		other.Credentials[domain.CredentialMerchantID] = "SOMEONE_ELSE"
		assert.False(t, p.VerifyNotification(notifications[0], other))
	})

	t.Run("malformed", func(t *testing.T) {
		_, err := p.ParseNotification(gateway.InboundNotification{Payload: []byte("<notify")})
		assert.Error(t, err)
	})
}

type fakeResolver struct {
	names []string
	err   error
}

func (f fakeResolver) LookupAddr(context.Context, string) ([]string, error) {
	return f.names, f.err
}

func TestVerifyNotificationSource(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	factory := gateway.NewClientFactoryWithHTTPClient(http.DefaultClient, nil, logger)
	secure := config.WorldpayConfig{SecureNotificationEnabled: true, NotificationDomain: ".worldpay.com"}
	in := gateway.InboundNotification{SourceIP: "195.35.90.1"}

	t.Run("trusted domain", func(t *testing.T) {
		p := worldpay.New(secure, factory, logger, worldpay.WithResolver(fakeResolver{names: []string{"hello.worldpay.com."}}))
		assert.True(t, p.VerifyNotificationSource(context.Background(), in))
	})

	t.Run("lookalike domain", func(t *testing.T) {
		p := worldpay.New(secure, factory, logger, worldpay.WithResolver(fakeResolver{names: []string{"evilworldpay.com."}}))
		assert.False(t, p.VerifyNotificationSource(context.Background(), in))
	})

	t.Run("lookup failure fails closed", func(t *testing.T) {
		p := worldpay.New(secure, factory, logger, worldpay.WithResolver(fakeResolver{err: errors.New("nxdomain")}))
		assert.False(t, p.VerifyNotificationSource(context.Background(), in))
	})

	t.Run("disabled check accepts", func(t *testing.T) {
		p := worldpay.New(config.WorldpayConfig{}, factory, logger)
		assert.True(t, p.VerifyNotificationSource(context.Background(), in))
	})
}

func TestVerifyNotification_MerchantCode(t *testing.T) {
	p := newProvider(t, "")

	tests := []struct {
		name     string
		merchant string
		want     bool
	}{
		{"matching merchant", "MERCHANTCODE", true},
		{"missing merchant", "", false},
		{"other merchant", "SOMEONE_ELSE", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := gateway.Notification{
				TransactionID: "tx-123",
				Status:        "CAPTURED",
				Fields:        map[string]string{"merchantCode": tt.merchant},
			}
			assert.Equal(t, tt.want, p.VerifyNotification(n, account()))
		})
	}

	t.Run("account without merchant id", func(t *testing.T) {
		bare := account()
		delete(bare.Credentials, domain.CredentialMerchantID)
		assert.False(t, p.VerifyNotification(gateway.Notification{Fields: map[string]string{"merchantCode": ""}}, bare))
	})
}

func TestConfirmNotification(t *testing.T) {
	notification := gateway.Notification{TransactionID: "tx-123", Reference: "refund-1", Status: "CAPTURED"}

	t.Run("gateway status replaces notified status", func(t *testing.T) {
		srv, requests := newServer(t, http.StatusOK, authorisedReply, "")
		var confirmer gateway.StatusConfirmer = newProvider(t, srv.URL)

		resp := confirmer.ConfirmNotification(context.Background(), notification, account())

		require.True(t, resp.IsSuccessful(), "%v", resp.Err())
		assert.Equal(t, "AUTHORISED", resp.Value().Status)
		assert.Equal(t, "tx-123", resp.Value().TransactionID)
		assert.Equal(t, "refund-1", resp.Value().Reference)

		require.Len(t, *requests, 1)
		sent := (*requests)[0]
		assert.Contains(t, sent.body,
			`<paymentService version="1.4" merchantCode="MERCHANTCODE"><inquiry><orderInquiry orderCode="tx-123"></orderInquiry></inquiry></paymentService>`)
		assert.True(t, strings.HasPrefix(sent.header.Get("Authorization"), "Basic "))
	})

	t.Run("error reply", func(t *testing.T) {
		srv, _ := newServer(t, http.StatusOK, errorReply, "")
		resp := newProvider(t, srv.URL).ConfirmNotification(context.Background(), notification, account())

		require.False(t, resp.IsSuccessful())
		assert.Equal(t, gateway.KindGateway, resp.Err().Kind)
		assert.Equal(t, "5", resp.Err().Code)
	})

	t.Run("reply for another order", func(t *testing.T) {
		srv, _ := newServer(t, http.StatusOK, authorisedReply, "")
		other := notification
		other.TransactionID = "tx-999"

		resp := newProvider(t, srv.URL).ConfirmNotification(context.Background(), other, account())

		require.False(t, resp.IsSuccessful())
		assert.Equal(t, "UNEXPECTED_RESPONSE", resp.Err().Code)
	})

	t.Run("reply without status", func(t *testing.T) {
		srv, _ := newServer(t, http.StatusOK, cancelReply, "")
		resp := newProvider(t, srv.URL).ConfirmNotification(context.Background(), notification, account())

		require.False(t, resp.IsSuccessful())
		assert.Equal(t, "UNEXPECTED_RESPONSE", resp.Err().Code)
	})

	t.Run("unexpected http status", func(t *testing.T) {
		srv, _ := newServer(t, http.StatusInternalServerError, "", "")
		resp := newProvider(t, srv.URL).ConfirmNotification(context.Background(), notification, account())

		require.False(t, resp.IsSuccessful())
	})
}
