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

package roster

import (
	"context"
	"errors"
	"sync"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/jackal-xmpp/runqueue/v2"
	"github.com/jackal-xmpp/sonar"
	"github.com/jackal-xmpp/stravaganza/v2"
	stanzaerror "github.com/jackal-xmpp/stravaganza/v2/errors/stanza"
	"github.com/jackal-xmpp/stravaganza/v2/jid"

	"github.com/marten-im/marten/pkg/c2s"
	"github.com/marten-im/marten/pkg/event"
	"github.com/marten-im/marten/pkg/host"
	"github.com/marten-im/marten/pkg/model/rostermodel"
	"github.com/marten-im/marten/pkg/router"
	"github.com/marten-im/marten/pkg/storage/repository"
	xmpputil "github.com/marten-im/marten/pkg/util/xmpp"
)

const (
	requestedInfoKey = "roster:requested"
	availableInfoKey = "roster:available"

	rosterNamespace = "jabber:iq:roster"
)

const (
	// ModuleName represents roster module name.
	ModuleName = "roster"
)

// Config contains roster module configuration.
type Config struct {
	// EmptyNameAllowed tells whether roster items may keep an empty
	// display name. When disabled, empty names default to the contact's
	// local part.
	EmptyNameAllowed bool `fig:"empty_name_allowed"`
}

// Roster represents a roster module type.
type Roster struct {
	cfg    Config
	rep    repository.Roster
	resMng resourceManager
	router router.Router
	hosts  hosts
	engine *SubscriptionEngine
	brd    broadcaster
	dyn    DynamicRosterProvider
	sn     *sonar.Sonar
	subs   []sonar.SubID
	logger kitlog.Logger

	mu  sync.Mutex
	rqs map[string]*runqueue.RunQueue
}

// New returns a new initialized Roster instance.
func New(
	cfg Config,
	router router.Router,
	rep repository.Roster,
	resMng *c2s.ResourceManager,
	hosts *host.Hosts,
	brd *Broadcaster,
	dyn DynamicRosterProvider,
	sonar *sonar.Sonar,
	logger kitlog.Logger,
) *Roster {
	logger = kitlog.With(logger, "module", ModuleName)
	return &Roster{
		cfg:    cfg,
		router: router,
		rep:    rep,
		resMng: resMng,
		hosts:  hosts,
		engine: NewSubscriptionEngine(rep, logger),
		brd:    brd,
		dyn:    dyn,
		sn:     sonar,
		logger: logger,
		rqs:    make(map[string]*runqueue.RunQueue),
	}
}

// Name returns roster module name.
func (r *Roster) Name() string { return ModuleName }

// StreamFeature returns roster stream feature.
func (r *Roster) StreamFeature(_ context.Context, _ string) (stravaganza.Element, error) {
	return stravaganza.NewBuilder("ver").
		WithAttribute(stravaganza.Namespace, "urn:xmpp:features:rosterver").
		Build(), nil
}

// ServerFeatures returns roster server disco features.
func (r *Roster) ServerFeatures(_ context.Context) ([]string, error) { return nil, nil }

// AccountFeatures returns roster account disco features.
func (r *Roster) AccountFeatures(_ context.Context) ([]string, error) { return nil, nil }

// MatchesNamespace tells whether namespace matches roster module.
func (r *Roster) MatchesNamespace(namespace string, serverTarget bool) bool {
	if serverTarget {
		return false
	}
	return namespace == rosterNamespace
}

// ProcessIQ process a roster iq.
func (r *Roster) ProcessIQ(ctx context.Context, iq *stravaganza.IQ) error {
	switch {
	case iq.IsGet():
		return r.sendRoster(ctx, iq)
	case iq.IsSet():
		return r.updateRoster(ctx, iq)
	}
	return nil
}

// Start starts roster module.
func (r *Roster) Start(_ context.Context) error {
	r.subs = append(r.subs, r.sn.Subscribe(event.C2SStreamPresenceReceived, r.onPresenceRecv))
	r.subs = append(r.subs, r.sn.Subscribe(event.UserDeleted, r.onUserDeleted))

	level.Info(r.logger).Log("msg", "started roster module")
	return nil
}

// Stop stops roster module.
func (r *Roster) Stop(_ context.Context) error {
	for _, sub := range r.subs {
		r.sn.Unsubscribe(sub)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rq := range r.rqs {
		c := make(chan struct{})
		rq.Stop(func() { close(c) })
		<-c
	}
	level.Info(r.logger).Log("msg", "stopped roster module")
	return nil
}

func (r *Roster) onPresenceRecv(_ context.Context, ev sonar.Event) error {
	inf, ok := ev.Info().(*event.C2SStreamEventInfo)
	if !ok {
		return nil
	}
	pr, ok := inf.Stanza.(*stravaganza.Presence)
	if !ok {
		return nil
	}
	if pr.ToJID().IsFull() {
		return nil // addressed to a concrete resource
	}
	rq := r.getRunQueue(pr.FromJID().Node())
	rq.Run(func() {
		if err := r.processPresence(context.Background(), pr); err != nil {
			level.Warn(r.logger).Log("msg", "failed to process presence", "err", err)
		}
	})
	return nil
}

func (r *Roster) onUserDeleted(ctx context.Context, ev sonar.Event) error {
	inf, ok := ev.Info().(*event.UserEventInfo)
	if !ok {
		return nil
	}
	if err := r.rep.DeleteRosterNotifications(ctx, inf.Username); err != nil {
		return err
	}
	return r.rep.DeleteRosterItems(ctx, inf.Username)
}

func (r *Roster) sendRoster(ctx context.Context, iq *stravaganza.IQ) error {
	q := iq.ChildNamespace("query", rosterNamespace)
	if q == nil || q.ChildrenCount() > 0 {
		_, _ = r.router.Route(ctx, xmpputil.MakeErrorStanza(iq, stanzaerror.BadRequest))
		return nil
	}
	usrJID := iq.FromJID()

	ros, err := r.rep.FetchRoster(ctx, usrJID.Node())
	if err != nil {
		_, _ = r.router.Route(ctx, xmpputil.MakeErrorStanza(iq, stanzaerror.InternalServerError))
		return err
	}
	// return empty response in case version matches...
	if ver := q.Attribute("ver"); len(ver) > 0 && ver == ros.Hash {
		_, _ = r.router.Route(ctx, xmpputil.MakeResultIQ(iq, nil))
		return r.markRosterRequested(ctx, usrJID)
	}
	// ...return whole roster otherwise
	var dynElements []stravaganza.Element
	if r.dyn != nil {
		dynItems, err := r.dyn.GetContacts(ctx, usrJID.Node())
		switch {
		case errors.Is(err, ErrDynamicRosterRequest):
			_, _ = r.router.Route(ctx, xmpputil.MakeErrorStanza(iq, stanzaerror.BadRequest))
			return nil

		case err != nil:
			// backing store unavailable: degrade to the static portion
			level.Warn(r.logger).Log("msg", "failed to fetch dynamic roster entries", "username", usrJID.Node(), "err", err)

		default:
			for _, di := range dynItems {
				if ros.Item(di.JID) != nil {
					continue
				}
				el := di.Element()
				extra, eErr := r.dyn.GetExtraData(ctx, usrJID.Node(), di.JID)
				switch {
				case eErr != nil:
					level.Warn(r.logger).Log("msg", "failed to fetch dynamic roster extra data", "jid", di.JID, "err", eErr)
				case extra != nil:
					el = stravaganza.NewBuilderFromElement(el).
						WithChild(extra).
						Build()
				}
				dynElements = append(dynElements, el)
			}
		}
	}
	sb := stravaganza.NewBuilder("query").
		WithAttribute(stravaganza.Namespace, rosterNamespace).
		WithAttribute("ver", ros.Hash)
	for _, ri := range ros.Items {
		sb.WithChild(ri.Element())
	}
	for _, el := range dynElements {
		sb.WithChild(el)
	}
	_, _ = r.router.Route(ctx, xmpputil.MakeResultIQ(iq, sb.Build()))

	level.Info(r.logger).Log("msg", "fetched user roster", "jid", usrJID.String())

	return r.markRosterRequested(ctx, usrJID)
}

func (r *Roster) markRosterRequested(ctx context.Context, usrJID *jid.JID) error {
	err := r.postRosterEvent(ctx, event.RosterRequested, &event.RosterEventInfo{
		Username: usrJID.Node(),
	})
	if err != nil {
		return err
	}
	return r.setStreamValue(ctx, usrJID.Node(), usrJID.Resource(), requestedInfoKey, true)
}

func (r *Roster) updateRoster(ctx context.Context, iq *stravaganza.IQ) error {
	q := iq.ChildNamespace("query", rosterNamespace)
	if q == nil {
		_, _ = r.router.Route(ctx, xmpputil.MakeErrorStanza(iq, stanzaerror.BadRequest))
		return nil
	}
	items := q.Children("item")
	if len(items) != 1 {
		_, _ = r.router.Route(ctx, xmpputil.MakeErrorStanza(iq, stanzaerror.BadRequest))
		return nil
	}
	ri, err := rostermodel.NewItem(items[0])
	if err != nil {
		_, _ = r.router.Route(ctx, xmpputil.MakeErrorStanza(iq, stanzaerror.BadRequest))
		return nil
	}
	switch ri.Subscription {
	case rostermodel.Remove:
		if err := r.removeItem(ctx, ri, iq.FromJID().ToBareJID()); err != nil {
			_, _ = r.router.Route(ctx, xmpputil.MakeErrorStanza(iq, stanzaerror.InternalServerError))
			return err
		}
	default:
		if err := r.updateItem(ctx, ri, items[0], iq.FromJID().Node()); err != nil {
			switch {
			case errors.Is(err, repository.ErrRosterCapacityReached):
				_, _ = r.router.Route(ctx, xmpputil.MakeErrorStanza(iq, stanzaerror.NotAcceptable))
				return nil

			case errors.Is(err, ErrDynamicRosterRequest):
				_, _ = r.router.Route(ctx, xmpputil.MakeErrorStanza(iq, stanzaerror.BadRequest))
				return nil
			}
			_, _ = r.router.Route(ctx, xmpputil.MakeErrorStanza(iq, stanzaerror.InternalServerError))
			return err
		}
	}
	_, _ = r.router.Route(ctx, xmpputil.MakeResultIQ(iq, nil))
	return nil
}

func (r *Roster) updateItem(ctx context.Context, ri *rostermodel.Item, itemEl stravaganza.Element, username string) error {
	if r.dyn != nil {
		dynRi, err := r.dyn.GetContactItem(ctx, username, ri.JID)
		switch {
		case errors.Is(err, ErrDynamicRosterRequest):
			return err

		case err != nil:
			level.Warn(r.logger).Log("msg", "failed to fetch dynamic roster entry", "jid", ri.JID, "err", err)

		case dynRi != nil:
			// dynamic entries belong to the provider: forward the opaque
			// payload and never touch the static store
			if extra := extraDataElement(itemEl); extra != nil {
				return r.dyn.SetExtraData(ctx, username, ri.JID, extra)
			}
			return nil
		}
	}
	name := ri.Name
	if len(name) == 0 && !r.cfg.EmptyNameAllowed {
		contactJID := ri.ContactJID()
		name = contactJID.Node()
		if len(name) == 0 {
			name = contactJID.String()
		}
	}
	usrRi, err := r.rep.FetchRosterItem(ctx, username, ri.JID)
	if err != nil {
		return err
	}
	if usrRi != nil {
		// update roster item
		usrRi.Name = name
		usrRi.Groups = ri.Groups
	} else {
		usrRi = &rostermodel.Item{
			Username:     username,
			JID:          ri.JID,
			Name:         name,
			Subscription: rostermodel.None,
			Groups:       ri.Groups,
		}
	}
	hash, err := r.rep.UpsertRosterItem(ctx, usrRi)
	if err != nil {
		return err
	}
	if err := r.brd.Broadcast(ctx, usrRi, hash); err != nil {
		return err
	}
	level.Info(r.logger).Log("msg", "updated roster item", "jid", ri.JID, "username", username)

	return r.postRosterEvent(ctx, event.RosterItemUpdated, &event.RosterEventInfo{
		Username:     username,
		JID:          ri.JID,
		Subscription: string(usrRi.Subscription),
	})
}

func (r *Roster) removeItem(ctx context.Context, ri *rostermodel.Item, userJID *jid.JID) error {
	username := userJID.Node()
	contactJID := ri.ContactJID()

	usrRi, err := r.rep.FetchRosterItem(ctx, username, ri.JID)
	if err != nil {
		return err
	}
	if usrRi == nil {
		return nil // nothing to remove
	}
	prevSub := usrRi.Subscription

	if err := r.rep.DeleteRosterNotification(ctx, username, ri.JID); err != nil {
		return err
	}
	hash, err := r.rep.DeleteRosterItem(ctx, username, ri.JID)
	if err != nil {
		return err
	}
	rmItem := &rostermodel.Item{
		Username:     username,
		JID:          ri.JID,
		Subscription: rostermodel.Remove,
	}
	if err := r.brd.Broadcast(ctx, rmItem, hash); err != nil {
		return err
	}
	// sever subscription handshake on both directions
	if prevSub.IsSubscribedTo() || prevSub.IsPendingOut() {
		unsubscribe := xmpputil.MakePresence(userJID, contactJID, stravaganza.UnsubscribeType, nil)
		if err := r.processPresence(ctx, unsubscribe); err != nil {
			return err
		}
	}
	if prevSub.IsSubscribedFrom() || prevSub.IsPendingIn() {
		unsubscribed := xmpputil.MakePresence(userJID, contactJID, stravaganza.UnsubscribedType, nil)
		if err := r.processPresence(ctx, unsubscribed); err != nil {
			return err
		}
	}
	level.Info(r.logger).Log("msg", "removed roster item", "jid", ri.JID, "username", username)

	return r.postRosterEvent(ctx, event.RosterItemUpdated, &event.RosterEventInfo{
		Username:     username,
		JID:          ri.JID,
		Subscription: string(rostermodel.Remove),
	})
}

func (r *Roster) postRosterEvent(ctx context.Context, eventName string, inf *event.RosterEventInfo) error {
	return r.sn.Post(ctx, sonar.NewEventBuilder(eventName).
		WithInfo(inf).
		WithSender(r).
		Build(),
	)
}

// extraDataElement extracts the opaque non-roster payload of a submitted
// roster item, skipping the protocol-owned group children.
func extraDataElement(itemEl stravaganza.Element) stravaganza.Element {
	for _, child := range itemEl.AllChildren() {
		if child.Name() == "group" {
			continue
		}
		return child
	}
	return nil
}

func (r *Roster) getRunQueue(username string) *runqueue.RunQueue {
	r.mu.Lock()
	defer r.mu.Unlock()

	rq, ok := r.rqs[username]
	if !ok {
		rq = runqueue.New(username)
		r.rqs[username] = rq
	}
	return rq
}
