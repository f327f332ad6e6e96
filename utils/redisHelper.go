package utils

import (
	"fmt"
	"reflect"

	"bitbucket.org/mmdatafocus/tradebooks_backend/config"
)

func GetTypeName[T any]() string {
	var v T
	return reflect.TypeOf(v).Name()
}

func redisKey[T any](id int) string {
	return GetTypeName[T]() + ":" + fmt.Sprint(id)
}

// StoreRedis caches obj under "<Type>:<id>" for CACHE_LIFESPAN hours.
func StoreRedis[T any](obj *T, id int) error {
	return config.SetRedisObject(redisKey[T](id), obj, config.CacheLifespan())
}

// RetrieveRedis returns nil when the key does not exist.
func RetrieveRedis[T any](id int) (*T, error) {
	var result T
	exists, err := config.GetRedisObject(redisKey[T](id), &result)
	if err != nil || !exists {
		return nil, err
	}
	return &result, nil
}

func RemoveRedisItem[T any](id int) error {
	return config.RemoveRedisKey(redisKey[T](id))
}
