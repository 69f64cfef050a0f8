// Package infra contém implementações concretas (infraestrutura) para os contratos
// definidos no pacote domain.
//
// Exemplos:
//   - TokenBucket/Registry: token bucket por cliente, em shards, com limpeza periódica
//   - GlobalStore: teto agregado usando golang.org/x/time/rate
//   - ChanPool: semáforo simples para limite de concorrência
//   - MemoryStatsStore/RedisStatsStore: estatísticas de admissão
package infra
