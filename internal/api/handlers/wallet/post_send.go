package wallet

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/opalhq/walletd/internal/api"
	"github.com/opalhq/walletd/internal/api/httperrors"
	"github.com/opalhq/walletd/internal/auth"
	"github.com/opalhq/walletd/internal/chain"
	"github.com/opalhq/walletd/internal/util"
	"github.com/opalhq/walletd/internal/wallet"
	"github.com/opalhq/walletd/internal/wallet/txbuilder"
	"github.com/opalhq/walletd/internal/wallet/units"
)

type PostSendPayload struct {
	To     string `json:"to"`
	Amount string `json:"amount"`
}

type PostSendResponse struct {
	TransactionHash string `json:"transaction_hash"`
	From            string `json:"from"`
	To              string `json:"to"`
	Amount          string `json:"amount"`
}

func PostSendRoute(s *api.Server) *echo.Route {
	return s.Router.APIWallet.POST("/send", postSendHandler(s))
}

// postSendHandler validates the transfer request and runs the full send
// pipeline. Validation failures never touch the chain or the custody
// provider.
func postSendHandler(s *api.Server) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx := c.Request().Context()
		log := util.LogFromContext(ctx)

		user := auth.UserFromContext(ctx)
		if user == nil {
			return httperrors.ErrUnauthorized
		}

		var body PostSendPayload
		if err := c.Bind(&body); err != nil {
			return httperrors.NewHTTPError(http.StatusBadRequest, httperrors.TypeValidation, "Malformed request body.")
		}

		to, err := txbuilder.ValidateAddress(body.To)
		if err != nil {
			return httperrors.NewHTTPErrorWithDetail(http.StatusBadRequest, httperrors.TypeValidation, "Invalid recipient address.", err.Error())
		}

		valueWei, err := units.ParseAmount(body.Amount)
		if err != nil {
			return httperrors.NewHTTPErrorWithDetail(http.StatusBadRequest, httperrors.TypeValidation, "Invalid amount.", err.Error())
		}

		result, err := s.Wallet.Send(ctx, user.ID, wallet.SendRequest{
			To:       to,
			ValueWei: valueWei,
		})
		if err != nil {
			return sendError(log, user.ID, err)
		}

		log.Info().
			Str("user_id", user.ID).
			Str("transaction_hash", result.TxHash).
			Msg("Transaction broadcast")

		return c.JSON(http.StatusOK, PostSendResponse{
			TransactionHash: result.TxHash,
			From:            result.From,
			To:              to.Hex(),
			Amount:          units.FormatWei(valueWei),
		})
	}
}

func sendError(log *zerolog.Logger, userID string, err error) error {
	if errors.Is(err, wallet.ErrNoAssociation) {
		return httperrors.ErrNotFoundWalletAssociation
	}

	var sendErr *wallet.SendError
	if errors.As(err, &sendErr) {
		log.Warn().Err(err).Str("user_id", userID).Str("step", string(sendErr.Step)).Msg("Send pipeline failed")

		var rpcErr *chain.RPCError
		if sendErr.Step == wallet.StepGatherChainState && errors.As(err, &rpcErr) {
			return httperrors.NewHTTPError(http.StatusBadGateway, httperrors.TypeUpstream, "Chain endpoint is unavailable.")
		}

		return httperrors.NewHTTPErrorWithDetail(http.StatusInternalServerError, httperrors.TypeTransactionFailed,
			"Transaction failed.",
			fmt.Sprintf("The transaction was not broadcast (failed at %s). No funds moved.", sendErr.Step))
	}

	log.Error().Err(err).Str("user_id", userID).Msg("Send failed")
	return httperrors.NewHTTPError(http.StatusInternalServerError, httperrors.TypeGeneric, "Transaction failed.")
}
