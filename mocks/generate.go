package mocks

//go:generate mockgen -destination=./mock_trading.go -package=mocks github.com/rxtech-lab/argo-riskbot/internal/trading/provider Venue,TradingSystemProvider
//go:generate mockgen -destination=./mock_store.go -package=mocks github.com/rxtech-lab/argo-riskbot/internal/store Store
//go:generate mockgen -destination=./mock_marketdata.go -package=mocks github.com/rxtech-lab/argo-riskbot/pkg/marketdata/provider Source
//go:generate mockgen -destination=./mock_notify.go -package=mocks github.com/rxtech-lab/argo-riskbot/internal/notify Sink,Sender
