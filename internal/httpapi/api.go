// Package httpapi exposes the game engine over a small JSON API. Identity is
// supplied by the session layer in front of this service as an opaque actor
// ID header; the engine only performs authorization checks.
package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/benjamw/cardparty/internal/game"
)

// ActorHeader carries the pre-authenticated actor ID.
const ActorHeader = "X-Actor-ID"

type Server struct {
	mgr *game.Manager
}

func New(mgr *game.Manager) *Server {
	return &Server{mgr: mgr}
}

// Mount attaches all game routes to the given engine.
func (srv *Server) Mount(r *gin.Engine) {
	api := r.Group("/api")

	api.GET("/games/preview", srv.previewPool)
	api.POST("/games", srv.createGame)
	api.GET("/games/:code", srv.getGame)
	api.DELETE("/games/:code", srv.deleteGame)

	g := api.Group("/games/:code")
	g.POST("/join", srv.joinGame)
	g.POST("/start", srv.startGame)
	g.POST("/end", srv.endGame)
	g.POST("/submit", srv.submitCards)
	g.POST("/review", srv.forceReview)
	g.POST("/winner", srv.pickWinner)
	g.POST("/advance", srv.advanceRound)
	g.POST("/reshuffle", srv.reshuffle)
	g.POST("/czar/next", srv.setNextCzar)
	g.POST("/czar/place", srv.placeSkipped)
	g.POST("/czar/skip", srv.voteSkipCzar)
	g.POST("/players/:id/remove", srv.removePlayer)
	g.POST("/players/:id/pause", srv.togglePause)
	g.POST("/host", srv.transferHost)
	g.POST("/hand/refresh", srv.refreshHand)
}

func actor(c *gin.Context) string {
	return c.GetHeader(ActorHeader)
}

// respondErr maps engine error kinds to HTTP statuses.
func respondErr(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch game.KindOf(err) {
	case game.KindValidation:
		status = http.StatusBadRequest
	case game.KindUnauthorized:
		status = http.StatusForbidden
	case game.KindNotFound:
		status = http.StatusNotFound
	case game.KindInvalidState:
		status = http.StatusConflict
	case game.KindInsufficientCards:
		status = http.StatusUnprocessableEntity
	default:
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("internal error")
		c.JSON(status, gin.H{"error": "internal_error"})
		return
	}
	c.JSON(status, gin.H{"error": string(game.KindOf(err)), "message": err.Error()})
}

func (srv *Server) previewPool(c *gin.Context) {
	filters := c.QueryArray("filter")
	c.JSON(http.StatusOK, srv.mgr.PreviewCardPool(filters))
}

func (srv *Server) createGame(c *gin.Context) {
	var req struct {
		Name     string        `json:"name"`
		Filters  []string      `json:"filters"`
		Settings game.Settings `json:"settings"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_body"})
		return
	}
	code, creatorID, err := srv.mgr.CreateSession(c.Request.Context(), req.Name, req.Filters, req.Settings)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": code, "playerId": creatorID})
}

func (srv *Server) getGame(c *gin.Context) {
	view, err := srv.mgr.View(c.Request.Context(), c.Param("code"), actor(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (srv *Server) deleteGame(c *gin.Context) {
	if err := srv.mgr.DeleteSession(c.Request.Context(), c.Param("code"), actor(c)); err != nil {
		respondErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (srv *Server) joinGame(c *gin.Context) {
	var req struct {
		Name string `json:"name"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_body"})
		return
	}
	res, err := srv.mgr.Join(c.Request.Context(), c.Param("code"), req.Name)
	if err != nil {
		respondErr(c, err)
		return
	}
	if res.AlreadyStarted {
		// Not an error: late joiners get the player list so the client can
		// redirect them.
		c.JSON(http.StatusOK, gin.H{"alreadyStarted": true, "players": res.PlayerNames})
		return
	}
	c.JSON(http.StatusOK, gin.H{"playerId": res.PlayerID})
}

func (srv *Server) startGame(c *gin.Context) {
	srv.simple(c, srv.mgr.Start(c.Request.Context(), c.Param("code"), actor(c)))
}

func (srv *Server) endGame(c *gin.Context) {
	srv.simple(c, srv.mgr.End(c.Request.Context(), c.Param("code"), actor(c)))
}

func (srv *Server) submitCards(c *gin.Context) {
	var req struct {
		CardIDs []string `json:"cardIds"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_body"})
		return
	}
	srv.simple(c, srv.mgr.Submit(c.Request.Context(), c.Param("code"), actor(c), req.CardIDs))
}

func (srv *Server) forceReview(c *gin.Context) {
	srv.simple(c, srv.mgr.ForceEarlyReview(c.Request.Context(), c.Param("code"), actor(c)))
}

func (srv *Server) pickWinner(c *gin.Context) {
	var req struct {
		PlayerID string `json:"playerId"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_body"})
		return
	}
	srv.simple(c, srv.mgr.PickWinner(c.Request.Context(), c.Param("code"), actor(c), req.PlayerID))
}

func (srv *Server) advanceRound(c *gin.Context) {
	srv.simple(c, srv.mgr.AdvanceRound(c.Request.Context(), c.Param("code"), actor(c)))
}

func (srv *Server) reshuffle(c *gin.Context) {
	srv.simple(c, srv.mgr.ReshuffleDiscards(c.Request.Context(), c.Param("code"), actor(c)))
}

func (srv *Server) setNextCzar(c *gin.Context) {
	var req struct {
		PlayerID string `json:"playerId"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_body"})
		return
	}
	srv.simple(c, srv.mgr.SetNextCzar(c.Request.Context(), c.Param("code"), actor(c), req.PlayerID))
}

func (srv *Server) placeSkipped(c *gin.Context) {
	var req struct {
		PlayerID string `json:"playerId"`
		BeforeID string `json:"beforeId"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_body"})
		return
	}
	srv.simple(c, srv.mgr.PlaceSkippedPlayer(c.Request.Context(), c.Param("code"), actor(c), req.PlayerID, req.BeforeID))
}

func (srv *Server) voteSkipCzar(c *gin.Context) {
	srv.simple(c, srv.mgr.VoteToSkipCzar(c.Request.Context(), c.Param("code"), actor(c)))
}

func (srv *Server) removePlayer(c *gin.Context) {
	srv.simple(c, srv.mgr.RemovePlayer(c.Request.Context(), c.Param("code"), actor(c), c.Param("id")))
}

func (srv *Server) togglePause(c *gin.Context) {
	srv.simple(c, srv.mgr.TogglePlayerPause(c.Request.Context(), c.Param("code"), actor(c), c.Param("id")))
}

func (srv *Server) transferHost(c *gin.Context) {
	var req struct {
		PlayerID      string `json:"playerId"`
		RemoveOldHost bool   `json:"removeOldHost"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_body"})
		return
	}
	srv.simple(c, srv.mgr.TransferHost(c.Request.Context(), c.Param("code"), actor(c), req.PlayerID, req.RemoveOldHost))
}

func (srv *Server) refreshHand(c *gin.Context) {
	srv.simple(c, srv.mgr.RefreshPlayerHand(c.Request.Context(), c.Param("code"), actor(c)))
}

// simple finishes a mutation endpoint by returning the caller's updated view
// of the session.
func (srv *Server) simple(c *gin.Context, err error) {
	if err != nil {
		respondErr(c, err)
		return
	}
	view, err := srv.mgr.View(c.Request.Context(), c.Param("code"), actor(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}
