package checkout

import (
	"testing"

	"github.com/trainwise/backend/internal/app/service/pending"

	"github.com/stretchr/testify/require"
)

func TestCheckCallbackParams(t *testing.T) {
	tx := &pending.Transaction{ID: "tx-1"}

	require.NoError(t, checkCallbackParams(tx, map[string]string{}))
	require.NoError(t, checkCallbackParams(tx, map[string]string{"pidx": "p1"}))
	require.NoError(t, checkCallbackParams(tx, map[string]string{"purchase_order_id": "tx-1"}))
	require.NoError(t, checkCallbackParams(tx, map[string]string{"transaction_uuid": "tx-1"}))

	require.Error(t, checkCallbackParams(tx, map[string]string{"purchase_order_id": "tx-2"}))
	require.Error(t, checkCallbackParams(tx, map[string]string{"transaction_uuid": "tx-2"}))
}

func TestGatewayRefPrefersStagedRef(t *testing.T) {
	tx := &pending.Transaction{ID: "tx-1", GatewayRef: "staged-pidx"}
	require.Equal(t, "staged-pidx", gatewayRef(tx, map[string]string{"pidx": "redirect-pidx"}))

	tx.GatewayRef = ""
	require.Equal(t, "redirect-pidx", gatewayRef(tx, map[string]string{"pidx": "redirect-pidx"}))
	require.Equal(t, "", gatewayRef(tx, map[string]string{}))
}
