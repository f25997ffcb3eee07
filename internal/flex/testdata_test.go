package flex

import (
	"context"
	"sync"
	"time"
)

const (
	requestOK = `<FlexStatementResponse timestamp="15 January, 2026 10:30 AM EST">
<Status>Success</Status>
<ReferenceCode>%s</ReferenceCode>
<Url>https://gdcdyn.interactivebrokers.com/Universal/servlet/FlexStatementService.GetStatement</Url>
</FlexStatementResponse>`

	failureTmpl = `<FlexStatementResponse timestamp="15 January, 2026 10:30 AM EST">
<Status>Fail</Status>
<ErrorCode>%s</ErrorCode>
<ErrorMessage>%s</ErrorMessage>
</FlexStatementResponse>`

	statementXML = `<FlexQueryResponse queryName="trades" type="AF">
<FlexStatements count="1">
<FlexStatement accountId="U1234567" fromDate="20260112" toDate="20260115" period="Custom" whenGenerated="20260115;103500">
<Trades>
<Trade accountId="U1234567" conid="265598" symbol="AAPL" ibExecID="0000e0d5.6579a1b2.01.01" buySell="BUY" quantity="10" tradePrice="185.5" dateTime="20260115;103000" levelOfDetail="EXECUTION"/>
<Trade accountId="U1234567" conid="265598" symbol="AAPL" ibExecID="0000e0d5.6579a1b3.01.01" buySell="SELL" quantity="-5" tradePrice="186" dateTime="20260115;110000"/>
<Order accountId="U1234567" conid="265598" symbol="AAPL" levelOfDetail="ORDER"/>
</Trades>
</FlexStatement>
</FlexStatements>
</FlexQueryResponse>`
)

type result struct {
	body string
	err  error
}

// fakeTransport replays scripted results; the last one repeats once the script runs out.
type fakeTransport struct {
	mu        sync.Mutex
	send      []result
	get       []result
	sendCalls int
	getCalls  int
	lastRange *DateRange
	lastRef   string
}

func (f *fakeTransport) SendRequest(_ context.Context, _, _ string, dr *DateRange) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := pick(f.send, f.sendCalls)
	f.sendCalls++
	f.lastRange = dr
	return []byte(r.body), r.err
}

func (f *fakeTransport) GetStatement(_ context.Context, _, ref string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r := pick(f.get, f.getCalls)
	f.getCalls++
	f.lastRef = ref
	return []byte(r.body), r.err
}

func pick(rs []result, i int) result {
	if len(rs) == 0 {
		return result{}
	}
	if i >= len(rs) {
		return rs[len(rs)-1]
	}
	return rs[i]
}

// sleepRecorder records requested delays without blocking.
type sleepRecorder struct {
	delays []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return ctx.Err()
}
