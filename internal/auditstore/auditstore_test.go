/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package auditstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/resource-health/check-manager/internal/checktypes"
)

type AuditStoreSuite struct {
	suite.Suite
	store *Store
}

func (s *AuditStoreSuite) SetupTest() {
	store, err := Open("sqlite://file::memory:?cache=shared")
	require.NoError(s.T(), err)
	s.store = store
}

func (s *AuditStoreSuite) TestRecordThenListForCheck_ReturnsNewestFirst() {
	ctx := context.Background()
	require.NoError(s.T(), s.store.Record(ctx, "alice", "create", "check-1", "template-1", "first"))
	time.Sleep(time.Millisecond)
	require.NoError(s.T(), s.store.Record(ctx, "alice", "run", "check-1", "template-1", "second"))
	require.NoError(s.T(), s.store.Record(ctx, "bob", "create", "check-2", "template-1", "other check"))

	entries, err := s.store.ListForCheck(ctx, checktypes.CheckId("check-1"))
	require.NoError(s.T(), err)
	require.Len(s.T(), entries, 2)
	s.Equal("run", entries[0].Action)
	s.Equal("create", entries[1].Action)
}

func (s *AuditStoreSuite) TestListForCheck_UnknownIdReturnsEmpty() {
	entries, err := s.store.ListForCheck(context.Background(), checktypes.CheckId("does-not-exist"))
	require.NoError(s.T(), err)
	s.Empty(entries)
}

func TestAuditStoreSuite(t *testing.T) {
	suite.Run(t, new(AuditStoreSuite))
}

func TestOpen_RejectsUnknownDSNScheme(t *testing.T) {
	_, err := Open("mongodb://localhost/audit")
	require.Error(t, err)
}
