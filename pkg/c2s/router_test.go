// Copyright 2022 The marten Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package c2s

import (
	"context"
	"testing"

	kitlog "github.com/go-kit/log"
	"github.com/jackal-xmpp/stravaganza/v2"
	"github.com/stretchr/testify/require"

	"github.com/marten-im/marten/pkg/cluster/instance"
	c2smodel "github.com/marten-im/marten/pkg/model/c2s"
	"github.com/marten-im/marten/pkg/router"
)

func TestC2SRouter_RouteToAllResources(t *testing.T) {
	// given
	var routed []string

	lrMock := &localRouterMock{
		RouteFunc: func(_ stravaganza.Stanza, username, resource string) error {
			routed = append(routed, username+"/"+resource)
			return nil
		},
	}
	resMngMock := &resourceManagerMock{
		GetResourcesFunc: func(_ context.Context, _ string) ([]c2smodel.ResourceDesc, error) {
			return []c2smodel.ResourceDesc{
				testResourceDesc(instance.ID(), "ortuman", "yard", true),
				testResourceDesc(instance.ID(), "ortuman", "chamber", true),
			}, nil
		},
	}
	r := &c2sRouter{local: lrMock, resMng: resMngMock, logger: kitlog.NewNopLogger()}

	// when
	pr := testPresence(t, "noelia@jabber.org/hall", "ortuman@jabber.org", "")

	targets, err := r.Route(context.Background(), pr)

	// then
	require.NoError(t, err)
	require.Len(t, targets, 2)
	require.Equal(t, []string{"ortuman/yard", "ortuman/chamber"}, routed)
}

func TestC2SRouter_RouteToFullResource(t *testing.T) {
	// given
	var routed []string

	lrMock := &localRouterMock{
		RouteFunc: func(_ stravaganza.Stanza, username, resource string) error {
			routed = append(routed, username+"/"+resource)
			return nil
		},
	}
	resMngMock := &resourceManagerMock{
		GetResourcesFunc: func(_ context.Context, _ string) ([]c2smodel.ResourceDesc, error) {
			return []c2smodel.ResourceDesc{
				testResourceDesc(instance.ID(), "ortuman", "yard", true),
				testResourceDesc(instance.ID(), "ortuman", "chamber", true),
			}, nil
		},
	}
	r := &c2sRouter{local: lrMock, resMng: resMngMock, logger: kitlog.NewNopLogger()}

	// when
	pr := testPresence(t, "noelia@jabber.org/hall", "ortuman@jabber.org/chamber", "")

	targets, err := r.Route(context.Background(), pr)

	// then
	require.NoError(t, err)
	require.Len(t, targets, 1)
	require.Equal(t, []string{"ortuman/chamber"}, routed)
}

func TestC2SRouter_ResourceNotFound(t *testing.T) {
	// given
	resMngMock := &resourceManagerMock{
		GetResourcesFunc: func(_ context.Context, _ string) ([]c2smodel.ResourceDesc, error) {
			return []c2smodel.ResourceDesc{
				testResourceDesc(instance.ID(), "ortuman", "yard", true),
			}, nil
		},
	}
	r := &c2sRouter{local: &localRouterMock{}, resMng: resMngMock, logger: kitlog.NewNopLogger()}

	// when
	pr := testPresence(t, "noelia@jabber.org/hall", "ortuman@jabber.org/balcony", "")

	_, err := r.Route(context.Background(), pr)

	// then
	require.ErrorIs(t, err, router.ErrResourceNotFound)
}

func TestC2SRouter_UserNotAvailable(t *testing.T) {
	// given
	resMngMock := &resourceManagerMock{
		GetResourcesFunc: func(_ context.Context, _ string) ([]c2smodel.ResourceDesc, error) {
			return nil, nil
		},
	}
	r := &c2sRouter{local: &localRouterMock{}, resMng: resMngMock, logger: kitlog.NewNopLogger()}

	// when
	pr := testPresence(t, "noelia@jabber.org/hall", "ortuman@jabber.org", "")

	_, err := r.Route(context.Background(), pr)

	// then
	require.ErrorIs(t, err, router.ErrUserNotAvailable)
}

func TestC2SRouter_SkipRemoteResources(t *testing.T) {
	// given
	var routed []string

	lrMock := &localRouterMock{
		RouteFunc: func(_ stravaganza.Stanza, username, resource string) error {
			routed = append(routed, username+"/"+resource)
			return nil
		},
	}
	resMngMock := &resourceManagerMock{
		GetResourcesFunc: func(_ context.Context, _ string) ([]c2smodel.ResourceDesc, error) {
			return []c2smodel.ResourceDesc{
				testResourceDesc(instance.ID(), "ortuman", "yard", true),
				testResourceDesc("remote-inst", "ortuman", "chamber", true),
			}, nil
		},
	}
	r := &c2sRouter{local: lrMock, resMng: resMngMock, logger: kitlog.NewNopLogger()}

	// when
	pr := testPresence(t, "noelia@jabber.org/hall", "ortuman@jabber.org", "")

	_, err := r.Route(context.Background(), pr)

	// then
	require.NoError(t, err)
	require.Equal(t, []string{"ortuman/yard"}, routed)
}

func testPresence(t *testing.T, from, to, typ string) *stravaganza.Presence {
	t.Helper()
	b := stravaganza.NewPresenceBuilder().
		WithAttribute(stravaganza.From, from).
		WithAttribute(stravaganza.To, to)
	if len(typ) > 0 {
		b.WithAttribute(stravaganza.Type, typ)
	}
	pr, err := b.BuildPresence()
	require.NoError(t, err)
	return pr
}
