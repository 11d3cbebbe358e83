package api

import (
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strconv"

	"github.com/Mohsinsiddi/nftsale/internal/sale"
	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
)

const defaultEventsLimit = 100

// SaleInfo is the body of GET /sale.
type SaleInfo struct {
	Owner       string `json:"owner"`
	MaxSupply   uint64 `json:"maxSupply"`
	BaseURI     string `json:"baseURI"`
	Cost        string `json:"cost"`
	TotalMinted uint64 `json:"totalMinted"`
	Held        string `json:"held"`
}

// TokenInfo is the body of GET /tokens/:id.
type TokenInfo struct {
	TokenID  uint64 `json:"tokenId"`
	Owner    string `json:"owner"`
	TokenURI string `json:"tokenURI"`
}

type valueRequest struct {
	Value string `json:"value" binding:"required"`
}

type uriRequest struct {
	URI string `json:"uri"`
}

type ownerRequest struct {
	NewOwner string `json:"newOwner" binding:"required"`
}

func (s *Server) getSale(c *gin.Context) {
	c.JSON(http.StatusOK, SaleInfo{
		Owner:       s.sale.Owner().Hex(),
		MaxSupply:   s.sale.MaxSupply(),
		BaseURI:     s.sale.BaseURI(),
		Cost:        s.sale.Cost().String(),
		TotalMinted: s.sale.TotalMinted(),
		Held:        s.sale.Held().String(),
	})
}

func (s *Server) getToken(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		badRequest(c, fmt.Errorf("invalid token id %q", c.Param("id")))
		return
	}
	owner, err := s.sale.OwnerOf(id)
	if err != nil {
		writeSaleError(c, err)
		return
	}
	uri, err := s.sale.TokenURI(id)
	if err != nil {
		writeSaleError(c, err)
		return
	}
	c.JSON(http.StatusOK, TokenInfo{TokenID: id, Owner: owner.Hex(), TokenURI: uri})
}

func (s *Server) getBalance(c *gin.Context) {
	addr, err := parseAddress(c.Param("address"))
	if err != nil {
		badRequest(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"address": addr.Hex(), "balance": s.sale.BalanceOf(addr)})
}

func (s *Server) getEvents(c *gin.Context) {
	after, err := strconv.ParseUint(c.DefaultQuery("after", "0"), 10, 64)
	if err != nil {
		badRequest(c, fmt.Errorf("invalid after %q", c.Query("after")))
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultEventsLimit)))
	if err != nil || limit < 0 {
		badRequest(c, fmt.Errorf("invalid limit %q", c.Query("limit")))
		return
	}
	records, err := s.events.Events(c.Request.Context(), after, limit)
	if err != nil {
		c.Error(err) //nolint:errcheck
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if records == nil {
		records = []sale.Record{}
	}
	c.JSON(http.StatusOK, gin.H{"events": records})
}

func (s *Server) postBuy(c *gin.Context) {
	caller, ok := callerFrom(c)
	if !ok {
		return
	}
	var req valueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	amount, ok := new(big.Int).SetString(req.Value, 10)
	if !ok {
		badRequest(c, fmt.Errorf("invalid value %q", req.Value))
		return
	}
	id, err := s.sale.Buy(c.Request.Context(), caller, amount)
	if err != nil {
		writeSaleError(c, err)
		return
	}
	uri, _ := s.sale.TokenURI(id)
	c.JSON(http.StatusOK, TokenInfo{TokenID: id, Owner: caller.Hex(), TokenURI: uri})
}

func (s *Server) postCost(c *gin.Context) {
	caller, ok := callerFrom(c)
	if !ok {
		return
	}
	var req valueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	cost, ok := new(big.Int).SetString(req.Value, 10)
	if !ok {
		badRequest(c, fmt.Errorf("invalid value %q", req.Value))
		return
	}
	if err := s.sale.SetCost(c.Request.Context(), caller, cost); err != nil {
		writeSaleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"cost": cost.String()})
}

func (s *Server) postBaseURI(c *gin.Context) {
	caller, ok := callerFrom(c)
	if !ok {
		return
	}
	var req uriRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := s.sale.SetBaseURI(c.Request.Context(), caller, req.URI); err != nil {
		writeSaleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"baseURI": req.URI})
}

func (s *Server) postWithdraw(c *gin.Context) {
	caller, ok := callerFrom(c)
	if !ok {
		return
	}
	amount, err := s.sale.Withdraw(c.Request.Context(), caller)
	if err != nil {
		writeSaleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"to": caller.Hex(), "amount": amount.String()})
}

func (s *Server) postOwner(c *gin.Context) {
	caller, ok := callerFrom(c)
	if !ok {
		return
	}
	var req ownerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	newOwner, err := parseAddress(req.NewOwner)
	if err != nil {
		badRequest(c, err)
		return
	}
	if err := s.sale.TransferOwnership(c.Request.Context(), caller, newOwner); err != nil {
		writeSaleError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"owner": newOwner.Hex()})
}

// --- helpers ---

func callerFrom(c *gin.Context) (common.Address, bool) {
	raw := c.GetHeader(headerCaller)
	if raw == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing " + headerCaller + " header"})
		return common.Address{}, false
	}
	addr, err := parseAddress(raw)
	if err != nil {
		badRequest(c, err)
		return common.Address{}, false
	}
	return addr, true
}

func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid address %q", s)
	}
	return common.HexToAddress(s), nil
}

func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

// StatusFor maps a sale error onto an HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, sale.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, sale.ErrIncorrectAmount),
		errors.Is(err, sale.ErrInvalidCost),
		errors.Is(err, sale.ErrZeroAddress),
		errors.Is(err, sale.ErrMintToZeroAddress):
		return http.StatusBadRequest
	case errors.Is(err, sale.ErrSupplyExceeded),
		errors.Is(err, sale.ErrNothingToWithdraw):
		return http.StatusConflict
	case errors.Is(err, sale.ErrTokenNotFound):
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func writeSaleError(c *gin.Context, err error) {
	c.Error(err) //nolint:errcheck
	body := gin.H{"error": err.Error()}
	if code := sale.Code(err); code != "" {
		body["code"] = code
	}
	c.AbortWithStatusJSON(StatusFor(err), body)
}
