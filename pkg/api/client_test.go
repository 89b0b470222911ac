package api_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/cenkalti/backoff/v5"
	"github.com/ipfs/go-cid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/kgcourse/geopub/pkg/api"
	"github.com/kgcourse/geopub/pkg/chain"
	"github.com/kgcourse/geopub/pkg/graph"
	"github.com/kgcourse/geopub/pkg/ids"
)

func serve(t *testing.T, e *echo.Echo) *api.Client {
	server := httptest.NewServer(e)
	t.Cleanup(server.Close)
	endpoint, err := url.Parse(server.URL)
	require.NoError(t, err)
	return api.New(*endpoint, api.WithBackOff(func() backoff.BackOff { return &backoff.ZeroBackOff{} }))
}

func editCID(t *testing.T) (cid.Cid, []byte) {
	c, body, err := graph.NewEdit("test", nil).ContentID()
	require.NoError(t, err)
	return c, body
}

func TestUploadEdit(t *testing.T) {
	expected, body := editCID(t)

	e := echo.New()
	e.POST("/ipfs/upload-edit", func(c echo.Context) error {
		fh, err := c.FormFile("file")
		require.NoError(t, err)
		f, err := fh.Open()
		require.NoError(t, err)
		defer f.Close()
		got, err := io.ReadAll(f)
		require.NoError(t, err)
		require.Equal(t, body, got)
		return c.JSON(http.StatusOK, map[string]string{"cid": "ipfs://" + expected.String()})
	})

	uploaded, err := serve(t, e).UploadEdit(t.Context(), body)
	require.NoError(t, err)
	require.Equal(t, expected, uploaded)
}

func TestUploadEditMalformedResponse(t *testing.T) {
	e := echo.New()
	e.POST("/ipfs/upload-edit", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"cid": "bafy-not-a-reference"})
	})
	_, err := serve(t, e).UploadEdit(t.Context(), []byte("{}"))
	require.ErrorIs(t, err, api.ErrMalformedCID)
}

func TestRetries(t *testing.T) {
	space := ids.MustParse("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	edit, _ := editCID(t)
	target := "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"

	t.Run("recovers from temporary failures", func(t *testing.T) {
		var calls atomic.Int32
		e := echo.New()
		e.POST("/space/:id/edit/calldata", func(c echo.Context) error {
			if calls.Add(1) < 3 {
				return c.String(http.StatusBadGateway, "try again")
			}
			var req map[string]string
			require.NoError(t, json.NewDecoder(c.Request().Body).Decode(&req))
			require.Equal(t, space.String(), c.Param("id"))
			require.Equal(t, "ipfs://"+edit.String(), req["cid"])
			return c.JSON(http.StatusOK, map[string]string{"to": target, "data": "0xdeadbeef"})
		})

		call, err := serve(t, e).EditCalldata(t.Context(), space, edit)
		require.NoError(t, err)
		require.Equal(t, int32(3), calls.Load())
		require.Equal(t, target, call.To.Hex())
		require.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, call.Data)
	})

	t.Run("gives up after three tries", func(t *testing.T) {
		var calls atomic.Int32
		e := echo.New()
		e.POST("/space/:id/edit/calldata", func(c echo.Context) error {
			calls.Add(1)
			return c.String(http.StatusServiceUnavailable, "down")
		})

		_, err := serve(t, e).EditCalldata(t.Context(), space, edit)
		var serr *api.StatusError
		require.ErrorAs(t, err, &serr)
		require.Equal(t, http.StatusServiceUnavailable, serr.Status)
		require.Equal(t, int32(3), calls.Load())
	})

	t.Run("client errors are permanent", func(t *testing.T) {
		var calls atomic.Int32
		e := echo.New()
		e.POST("/space/:id/edit/calldata", func(c echo.Context) error {
			calls.Add(1)
			return c.String(http.StatusBadRequest, "bad cid")
		})

		_, err := serve(t, e).EditCalldata(t.Context(), space, edit)
		require.ErrorContains(t, err, "unexpected status 400: bad cid")
		require.Equal(t, int32(1), calls.Load())
	})
}

func TestProposalCalldata(t *testing.T) {
	dao := ids.MustParse("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	caller := ids.MustParse("bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
	daoAddr, err := chain.ParseAddress("0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359")
	require.NoError(t, err)
	author, err := chain.ParseAddress("0x9d8A62f656a8d1615C1294fd71e9CFb3E4855A4F")
	require.NoError(t, err)
	edit, _ := editCID(t)

	e := echo.New()
	e.POST("/space/:id/proposal/calldata", func(c echo.Context) error {
		require.Equal(t, dao.String(), c.Param("id"))
		var req map[string]string
		require.NoError(t, json.NewDecoder(c.Request().Body).Decode(&req))
		require.Equal(t, map[string]string{
			"cid":           "ipfs://" + edit.String(),
			"callerSpaceId": caller.String(),
			"spaceAddress":  strings.ToLower(daoAddr.Hex()),
			"author":        strings.ToLower(author.Hex()),
		}, req)
		return c.JSON(http.StatusOK, map[string]string{"to": daoAddr.Hex(), "data": "0x01"})
	})

	call, err := serve(t, e).ProposalCalldata(t.Context(), api.ProposalRequest{
		SpaceID:       dao,
		CID:           edit,
		CallerSpaceID: caller,
		SpaceAddress:  daoAddr,
		Author:        author,
	})
	require.NoError(t, err)
	require.Equal(t, daoAddr, call.To)
	require.Equal(t, []byte{0x01}, call.Data)
}

func TestPersonalSpaceCalldata(t *testing.T) {
	owner, err := chain.ParseAddress("0x9d8A62f656a8d1615C1294fd71e9CFb3E4855A4F")
	require.NoError(t, err)

	e := echo.New()
	e.POST("/personal-space/calldata", func(c echo.Context) error {
		var req map[string]string
		require.NoError(t, json.NewDecoder(c.Request().Body).Decode(&req))
		require.True(t, strings.EqualFold(owner.Hex(), req["address"]))
		return c.JSON(http.StatusOK, map[string]string{"to": "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", "data": "0x"})
	})

	call, err := serve(t, e).PersonalSpaceCalldata(t.Context(), owner)
	require.NoError(t, err)
	require.Empty(t, call.Data)
}

func TestParseIPFSURI(t *testing.T) {
	edit, _ := editCID(t)
	parsed, err := api.ParseIPFSURI(api.IPFSURI(edit))
	require.NoError(t, err)
	require.Equal(t, edit, parsed)

	_, err = api.ParseIPFSURI(edit.String())
	require.ErrorIs(t, err, api.ErrMalformedCID)
	_, err = api.ParseIPFSURI("ipfs://nope")
	require.ErrorIs(t, err, api.ErrMalformedCID)
}
