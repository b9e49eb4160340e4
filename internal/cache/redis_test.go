package cache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/redis/rueidis"
	"github.com/redis/rueidis/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestRedisGetProfile(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	data, err := json.Marshal(testProfile())
	require.NoError(t, err)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("GET", profilePrefix+testID)).
		Return(mock.Result(mock.RedisBlobString(string(data))))
	c.EXPECT().
		Do(gomock.Any(), mock.Match("GET", profilePrefix+"0000-0000-0000-0000")).
		Return(mock.Result(mock.RedisNil()))

	r := NewRedis(c, time.Hour)
	got, err := r.GetProfile(context.Background(), testID)
	require.NoError(t, err)
	assert.Equal(t, testProfile(), got)

	_, err = r.GetProfile(context.Background(), "0000-0000-0000-0000")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestRedisPutProfile(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	data, err := json.Marshal(testProfile())
	require.NoError(t, err)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("SET", profilePrefix+testID, string(data), "EX", "3600")).
		Return(mock.Result(mock.RedisString("OK")))

	require.NoError(t, NewRedis(c, time.Hour).PutProfile(context.Background(), testProfile()))
}

func TestRedisClear(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	first := true
	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool { return cmd[0] == "SCAN" })).
		DoAndReturn(func(_ context.Context, _ rueidis.Completed) rueidis.RedisResult {
			if first {
				first = false
				return mock.Result(mock.RedisArray(
					mock.RedisInt64(7),
					mock.RedisArray(mock.RedisString(profilePrefix+"a")),
				))
			}
			return mock.Result(mock.RedisArray(
				mock.RedisInt64(0),
				mock.RedisArray(),
			))
		}).Times(2)
	c.EXPECT().
		Do(gomock.Any(), mock.Match("DEL", profilePrefix+"a")).
		Return(mock.Result(mock.RedisInt64(1)))

	require.NoError(t, NewRedis(c, time.Hour).Clear(context.Background()))
}

func TestRedisPing(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)
	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	assert.Error(t, NewRedis(c, 0).Ping(context.Background()))
}
