// Package admission fornece adapters HTTP (net/http) para a admissão de inscrições.
//
// Visão geral (camadas):
//
//   - domain: contratos e tipos do domínio (sem dependência de net/http)
//   - validation: validadores de email/nome e padrões de ameaça
//   - application: casos de uso (Gate.Admit, decisão allow/deny, acquire/timeout) sem net/http
//   - infra: implementações concretas (token bucket, registro por chave, semáforo, estatísticas)
//   - admission (este pacote): handler de inscrição, middlewares HTTP, extração de chave
//     e tradução de rejeições para status/headers
//
// Fluxo no gateway:
//
//  1. Extrai a chave do cliente (IP/header/XFF)
//  2. Lê o corpo até o limite de payload e decodifica email/nome (form ou JSON)
//  3. Chama Gate.Admit: tamanho, rate limit, email, nome
//  4. Se rejeitado, responde 413, 429 ou 400 com o envelope de erro
//  5. Se admitido, entrega os campos canônicos ao Subscriber
//
// Variáveis de ambiente do binário gateway (cmd/gateway) controlam o comportamento,
// como REQUESTS_PER_MINUTE, MAX_PAYLOAD_BYTES, CONCURRENCY_MAX e GLOBAL_RPS.
package admission
