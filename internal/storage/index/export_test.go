package index

// CacheLen возвращает количество записей в кэше.
func CacheLen(c *Cached) int {
	return c.cache.Len()
}
